package main

import (
	"context"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/simp-lee/mailsync/internal/client"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/query"
	"github.com/simp-lee/mailsync/internal/store"
)

// listing is one page ready for rendering.
type listing struct {
	header []string
	rows   [][]string
	page   any
	total  int64
	pages  int
	number int
	label  string
}

// resourceCmd is the type-erased view of a client.Resource the commands use.
type resourceCmd interface {
	kind() domain.ResourceKind
	list(ctx context.Context, page, size int, search string) (listing, error)
	watch(page, size int, search string, fn func(listing, error)) *query.Subscription
	get(ctx context.Context, id string) (listing, error)
	bulkDelete(ctx context.Context, ids []string) store.BulkResult
}

type typed[T any] struct {
	res    *client.Resource[T]
	header []string
	row    func(*T) []string
}

func (t typed[T]) kind() domain.ResourceKind { return t.res.Kind }

func (t typed[T]) listing(p *domain.PaginatedResponse[T]) listing {
	l := listing{
		header: t.header,
		page:   p,
		total:  p.TotalCount,
		pages:  p.TotalPages,
		number: p.CurrentPage,
		label:  t.res.Kind.Label,
	}
	for i := range p.Data {
		l.rows = append(l.rows, t.row(&p.Data[i]))
	}
	return l
}

func (t typed[T]) list(ctx context.Context, page, size int, search string) (listing, error) {
	res, err := t.res.List(ctx, page, size, search)
	if err != nil {
		return listing{}, err
	}
	return t.listing(res.Data), nil
}

func (t typed[T]) watch(page, size int, search string, fn func(listing, error)) *query.Subscription {
	return t.res.Watch(page, size, search, func(r query.Result[*domain.PaginatedResponse[T]]) {
		switch {
		case r.Data != nil:
			fn(t.listing(r.Data), nil)
		case r.Err != nil:
			fn(listing{}, r.Err)
		}
	})
}

func (t typed[T]) get(ctx context.Context, id string) (listing, error) {
	v, err := t.res.Get(ctx, id)
	if err != nil {
		return listing{}, err
	}
	return listing{header: t.header, rows: [][]string{t.row(v)}, page: v, label: t.res.Kind.Label}, nil
}

func (t typed[T]) bulkDelete(ctx context.Context, ids []string) store.BulkResult {
	t.res.Store.SetSelection(ids)
	return t.res.Store.BulkDelete(ctx)
}

// resource finds the command view for a tag or path segment, so both
// "contact" and "contacts" work.
func (cl *cli) resource(name string) (resourceCmd, bool) {
	for _, k := range domain.Kinds() {
		if k.Tag == name || k.Segment() == name {
			return cl.byTag(k.Tag)
		}
	}
	return nil, false
}

func (cl *cli) byTag(tag string) (resourceCmd, bool) {
	c := cl.c
	switch tag {
	case domain.ContactKind.Tag:
		return typed[domain.Contact]{c.Contacts,
			[]string{"ID", "NAME", "EMAIL", "FROM", "SUBSCRIBED", "CREATED"},
			func(v *domain.Contact) []string {
				return []string{v.ID, fullName(v.FirstName, v.LastName), v.Email, v.From, yesNo(v.IsSubscribed), ago(v.CreatedAt)}
			}}, true
	case domain.ContactGroupKind.Tag:
		return typed[domain.ContactGroup]{c.ContactGroups,
			[]string{"ID", "NAME", "DESCRIPTION", "CREATED"},
			func(v *domain.ContactGroup) []string {
				return []string{v.ID, v.Name, v.Description, ago(v.CreatedAt)}
			}}, true
	case domain.CampaignKind.Tag:
		return typed[domain.Campaign]{c.Campaigns,
			[]string{"ID", "NAME", "SUBJECT", "STATUS", "SCHEDULED"},
			func(v *domain.Campaign) []string {
				scheduled := "-"
				if v.ScheduledAt != nil {
					scheduled = humanize.Time(*v.ScheduledAt)
				}
				return []string{v.ID, v.Name, v.Subject, v.Status, scheduled}
			}}, true
	case domain.DomainKind.Tag:
		return typed[domain.Domain]{c.Domains,
			[]string{"ID", "NAME", "STATUS", "CREATED"},
			func(v *domain.Domain) []string {
				return []string{v.ID, v.Name, v.Status, ago(v.CreatedAt)}
			}}, true
	case domain.SenderKind.Tag:
		return typed[domain.Sender]{c.Senders,
			[]string{"ID", "NAME", "EMAIL", "DOMAIN"},
			func(v *domain.Sender) []string {
				return []string{v.ID, v.Name, v.Email, orDash(v.DomainID)}
			}}, true
	case domain.TicketKind.Tag:
		return typed[domain.Ticket]{c.Tickets,
			[]string{"ID", "SUBJECT", "PRIORITY", "STATUS", "CREATED"},
			func(v *domain.Ticket) []string {
				return []string{v.ID, v.Subject, v.Priority, v.Status, ago(v.CreatedAt)}
			}}, true
	case domain.PlanKind.Tag:
		return typed[domain.Plan]{c.Plans,
			[]string{"ID", "NAME", "PRICE", "CONTACTS", "EMAILS"},
			func(v *domain.Plan) []string {
				return []string{v.ID, v.Name, money(v.PriceCents, v.Currency), limit(v.ContactsLimit), limit(v.EmailsLimit)}
			}}, true
	case domain.BillingKind.Tag:
		return typed[domain.BillingRecord]{c.Billing,
			[]string{"ID", "REFERENCE", "AMOUNT", "STATUS", "CREATED"},
			func(v *domain.BillingRecord) []string {
				return []string{v.ID, v.Reference, money(v.AmountCents, v.Currency), v.Status, ago(v.CreatedAt)}
			}}, true
	}
	return nil, false
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return orDash(last)
	case last == "":
		return first
	}
	return first + " " + last
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// money renders an amount in minor units, e.g. 123456 USD as "1,234.56 USD".
func money(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	s := sign + humanize.Comma(cents/100) + "." + frac
	if currency != "" {
		s += " " + currency
	}
	return s
}

func limit(n int) string {
	return humanize.Comma(int64(n))
}
