package resource

import (
	"net/http"
	"testing"

	"github.com/simp-lee/mailsync/internal/domain"
)

func TestHandler_ContactLifecycle(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/contacts", map[string]any{
		"first_name":    " Jane ",
		"last_name":     "Doe",
		"email":         "Jane@X.com",
		"from":          "web",
		"is_subscribed": true,
	})
	if w.Code != http.StatusCreated || !env.Status {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	if env.Message != "contact created successfully" {
		t.Errorf("message = %q", env.Message)
	}
	created := decodePayload[domain.Contact](t, env)
	if created.ID == "" || created.FirstName != "Jane" || created.Email != "jane@x.com" {
		t.Fatalf("created = %+v", created)
	}

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/contacts/"+created.ID, nil)
	if w.Code != http.StatusOK || decodePayload[domain.Contact](t, env).ID != created.ID {
		t.Fatalf("get status = %d: %s", w.Code, w.Body.String())
	}

	w, env = doJSON(t, r, http.MethodPut, "/api/v1/contacts/"+created.ID, map[string]any{
		"id":         "forged",
		"first_name": "Janet",
		"email":      "janet@x.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	updated := decodePayload[domain.Contact](t, env)
	if updated.ID != created.ID || updated.FirstName != "Janet" || updated.IsSubscribed {
		t.Errorf("updated = %+v", updated)
	}

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/contacts?page=1&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	page := decodePayload[domain.PaginatedResponse[domain.Contact]](t, env)
	if page.TotalCount != 1 || page.Data[0].ID != created.ID {
		t.Errorf("page = %+v", page)
	}

	w, env = doJSON(t, r, http.MethodDelete, "/api/v1/contacts/"+created.ID, nil)
	if w.Code != http.StatusOK || env.Message != "contact deleted successfully" {
		t.Fatalf("delete status = %d: %s", w.Code, w.Body.String())
	}

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/contacts/"+created.ID, nil)
	if w.Code != http.StatusNotFound || env.Status {
		t.Fatalf("get deleted status = %d", w.Code)
	}
	if env.Message != "not found" || decodePayload[string](t, env) != "contact not found" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestHandler_CreateValidation(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/contacts", map[string]any{"first_name": "NoEmail"})
	if w.Code != http.StatusBadRequest || env.Status {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decodePayload[string](t, env); got != "email: This field is required" {
		t.Errorf("payload = %q", got)
	}
}

func TestHandler_NormalizeRules(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name     string
		path     string
		body     map[string]any
		wantCode int
	}{
		{"scheduled campaign needs a time", "/api/v1/campaigns", map[string]any{"name": "Launch", "status": "scheduled"}, http.StatusBadRequest},
		{"draft campaign", "/api/v1/campaigns", map[string]any{"name": "Launch"}, http.StatusCreated},
		{"blank group name", "/api/v1/contact-groups", map[string]any{"name": "   "}, http.StatusBadRequest},
		{"bad ticket priority", "/api/v1/tickets", map[string]any{"subject": "Help", "priority": "urgent"}, http.StatusBadRequest},
		{"plan", "/api/v1/plans", map[string]any{"name": "Pro", "price_cents": 1900}, http.StatusCreated},
		{"negative price", "/api/v1/plans", map[string]any{"name": "Pro", "price_cents": -1}, http.StatusBadRequest},
		{"billing", "/api/v1/billing", map[string]any{"reference": "INV-1", "currency": "eur"}, http.StatusCreated},
		{"sender", "/api/v1/senders", map[string]any{"name": "News", "email": "news@example.com"}, http.StatusCreated},
		{"bad domain", "/api/v1/domains", map[string]any{"name": "not a domain"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, r, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d; want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestHandler_Defaults(t *testing.T) {
	r, _ := setupRouter(t)

	_, env := doJSON(t, r, http.MethodPost, "/api/v1/tickets", map[string]any{"subject": "Help"})
	ticket := decodePayload[domain.Ticket](t, env)
	if ticket.Priority != domain.TicketNormal || ticket.Status != domain.TicketOpen {
		t.Errorf("ticket = %+v", ticket)
	}

	_, env = doJSON(t, r, http.MethodPost, "/api/v1/billing", map[string]any{"reference": "INV-1", "currency": "eur"})
	bill := decodePayload[domain.BillingRecord](t, env)
	if bill.Currency != "EUR" || bill.Status != domain.BillingPending {
		t.Errorf("billing = %+v", bill)
	}

	_, env = doJSON(t, r, http.MethodPost, "/api/v1/domains", map[string]any{"name": "Mail.Example.COM"})
	d := decodePayload[domain.Domain](t, env)
	if d.Name != "mail.example.com" || d.Status != domain.DomainPending {
		t.Errorf("domain = %+v", d)
	}
}

func TestHandler_ListPagination(t *testing.T) {
	r, _ := setupRouter(t)
	for i := 0; i < 3; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/api/v1/plans", map[string]any{"name": "Plan"})
		if w.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", w.Code)
		}
	}

	_, env := doJSON(t, r, http.MethodGet, "/api/v1/plans?page=5&page_size=2", nil)
	page := decodePayload[domain.PaginatedResponse[domain.Plan]](t, env)
	if page.TotalCount != 3 || page.TotalPages != 2 || page.CurrentPage != 2 || page.PageSize != 2 || len(page.Data) != 1 {
		t.Errorf("page = %+v", page)
	}
}
