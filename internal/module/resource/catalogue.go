package resource

import (
	"errors"
	"strings"

	"github.com/simp-lee/mailsync/internal/domain"
)

const defaultCurrency = "USD"

var (
	Contacts = Define(domain.ContactKind, func(c *domain.Contact) error {
		c.FirstName = strings.TrimSpace(c.FirstName)
		c.LastName = strings.TrimSpace(c.LastName)
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		c.From = strings.TrimSpace(c.From)
		return nil
	})

	ContactGroups = Define(domain.ContactGroupKind, func(g *domain.ContactGroup) error {
		g.Name = strings.TrimSpace(g.Name)
		if g.Name == "" {
			return errors.New("name must not be blank")
		}
		g.Description = strings.TrimSpace(g.Description)
		return nil
	})

	Campaigns = Define(domain.CampaignKind, func(c *domain.Campaign) error {
		c.Name = strings.TrimSpace(c.Name)
		c.Subject = strings.TrimSpace(c.Subject)
		if c.Status == "" {
			c.Status = domain.CampaignDraft
		}
		if c.Status == domain.CampaignScheduled && c.ScheduledAt == nil {
			return errors.New("scheduled_at is required for a scheduled campaign")
		}
		return nil
	})

	Domains = Define(domain.DomainKind, func(d *domain.Domain) error {
		d.Name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d.Name)), ".")
		if d.Status == "" {
			d.Status = domain.DomainPending
		}
		return nil
	})

	Senders = Define(domain.SenderKind, func(s *domain.Sender) error {
		s.Name = strings.TrimSpace(s.Name)
		s.Email = strings.ToLower(strings.TrimSpace(s.Email))
		return nil
	})

	Tickets = Define(domain.TicketKind, func(t *domain.Ticket) error {
		t.Subject = strings.TrimSpace(t.Subject)
		if t.Subject == "" {
			return errors.New("subject must not be blank")
		}
		if t.Priority == "" {
			t.Priority = domain.TicketNormal
		}
		if t.Status == "" {
			t.Status = domain.TicketOpen
		}
		return nil
	})

	Plans = Define(domain.PlanKind, func(p *domain.Plan) error {
		p.Name = strings.TrimSpace(p.Name)
		p.Currency = currency(p.Currency)
		return nil
	})

	Billing = Define(domain.BillingKind, func(b *domain.BillingRecord) error {
		b.Reference = strings.TrimSpace(b.Reference)
		b.Currency = currency(b.Currency)
		if b.Status == "" {
			b.Status = domain.BillingPending
		}
		return nil
	})
)

func currency(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultCurrency
	}
	return s
}
