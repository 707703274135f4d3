package client

import (
	"context"
	"io"
	"net/http"

	"github.com/simp-lee/mailsync/internal/apiclient"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/eventbus"
	"github.com/simp-lee/mailsync/internal/query"
	"github.com/simp-lee/mailsync/internal/store"
)

// ImportContacts uploads a CSV file of contacts. Rows the server skipped are
// listed in the result; the upload as a whole only fails on a bad file.
func (c *Client) ImportContacts(ctx context.Context, filename string, r io.Reader) (*domain.ImportResult, error) {
	var res domain.ImportResult
	msg, err := c.API.Upload(ctx, []string{domain.ContactKind.Segment(), "import"}, domain.ImportField, filename, r, &res)
	if err != nil {
		c.report(ctx, "import contacts", err)
		return nil, err
	}
	if res.Imported > 0 {
		c.Cache.Invalidate(domain.ContactKind.Tag)
	}
	c.Bus.Emit(eventbus.Success, msg)
	if res.Skipped > 0 {
		c.Bus.Emitf(eventbus.Info, "%d of %d rows skipped", res.Skipped, res.Total)
	}
	return &res, nil
}

// ImportSample downloads the CSV template the import understands.
func (c *Client) ImportSample(ctx context.Context) (*apiclient.Attachment, error) {
	return c.API.Download(ctx, domain.ContactKind.Segment(), "import", "sample")
}

// AssignContacts adds every selected contact to group with one request per
// contact.
func (c *Client) AssignContacts(ctx context.Context, groupID string) (store.BulkResult, error) {
	c.Contacts.Store.SetTarget(groupID)
	return c.Contacts.Store.BulkAssign(ctx, c.addMember)
}

func (c *Client) addMember(ctx context.Context, contactID, groupID string) error {
	_, err := c.API.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   membersPath(groupID, contactID),
	}, nil)
	return err
}

// RemoveFromGroup takes one contact out of a group.
func (c *Client) RemoveFromGroup(ctx context.Context, groupID, contactID string) error {
	msg, err := c.API.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   membersPath(groupID, contactID),
	}, nil)
	if err != nil {
		c.report(ctx, "remove from group", err)
		return err
	}
	c.Cache.Invalidate(domain.ContactGroupKind.Tag)
	c.Bus.Emit(eventbus.Success, msg)
	return nil
}

// GroupMembers reads one page of a group's contacts through the cache.
func (c *Client) GroupMembers(ctx context.Context, groupID string, page, pageSize int, search string) (query.Result[*domain.PaginatedResponse[domain.Contact]], error) {
	key := query.ListKey(domain.ContactGroupKind.Tag, page, pageSize, search)
	key.Scope = groupID + "/contacts"
	s, err := c.Cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		var p domain.PaginatedResponse[domain.Contact]
		_, err := c.API.Do(ctx, apiclient.Request{
			Method: http.MethodGet,
			Path:   membersPath(groupID),
			Query:  apiclient.PageParams{Page: page, PageSize: pageSize, Search: search}.Values(),
		}, &p)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	})
	return query.Cast[*domain.PaginatedResponse[domain.Contact]](s), err
}

// DomainRecords returns the DNS records that verify a domain.
func (c *Client) DomainRecords(ctx context.Context, domainID string) ([]domain.DNSRecord, error) {
	key := query.DetailKey(domain.DomainKind.Tag, domainID)
	key.Scope = "records"
	s, err := c.Cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		var records []domain.DNSRecord
		if _, err := c.API.Do(ctx, apiclient.Request{
			Method: http.MethodGet,
			Path:   []string{domain.DomainKind.Segment(), domainID, "records"},
		}, &records); err != nil {
			return nil, err
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	records, _ := s.Data.([]domain.DNSRecord)
	return records, nil
}

// DownloadRecords fetches the zone-file export of a domain's records.
func (c *Client) DownloadRecords(ctx context.Context, domainID string) (*apiclient.Attachment, error) {
	att, err := c.API.Download(ctx, domain.DomainKind.Segment(), domainID, "records", "download")
	if err != nil {
		c.report(ctx, "download records", err)
		return nil, err
	}
	return att, nil
}

func membersPath(groupID string, contactID ...string) []string {
	return append([]string{domain.ContactGroupKind.Segment(), groupID, "contacts"}, contactID...)
}
