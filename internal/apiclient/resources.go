package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/simp-lee/mailsync/internal/domain"
)

// PageParams are the list query parameters.
type PageParams struct {
	Page     int
	PageSize int
	Search   string
}

// Values encodes p, omitting unset fields so the server defaults apply.
func (p PageParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// ListPage fetches one page of a list endpoint and checks the pagination
// invariants before returning it.
func ListPage[T any](ctx context.Context, c *Client, path string, p PageParams) (*domain.PaginatedResponse[T], error) {
	var page domain.PaginatedResponse[T]
	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: []string{path}, Query: p.Values()}, &page); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// Get fetches one entity by id.
func Get[T any](ctx context.Context, c *Client, path, id string) (*T, error) {
	var v T
	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: []string{path, id}}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create posts v and returns the stored entity.
func Create[T any](ctx context.Context, c *Client, path string, v *T) (*T, error) {
	var out T
	if _, err := c.Do(ctx, Request{Method: http.MethodPost, Path: []string{path}, Body: v}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the entity id with v and returns the stored entity.
func Update[T any](ctx context.Context, c *Client, path, id string, v *T) (*T, error) {
	var out T
	if _, err := c.Do(ctx, Request{Method: http.MethodPut, Path: []string{path, id}, Body: v}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the entity id.
func (c *Client) Delete(ctx context.Context, path, id string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: []string{path, id}}, nil)
	return err
}

// Upload sends r as a multipart file under field and decodes the envelope
// payload into out.
func (c *Client) Upload(ctx context.Context, path []string, field, filename string, r io.Reader, out any) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	return c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Raw:         &buf,
		ContentType: w.FormDataContentType(),
	}, out)
}
