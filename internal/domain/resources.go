package domain

import "strings"

// ResourceKind names one REST resource on both sides of the wire.
type ResourceKind struct {
	// Tag identifies the resource to SDK caches, e.g. "contact-group".
	Tag string
	// Path is the collection path under /api/v1, e.g. "/contact-groups".
	Path string
	// Label names a single record in messages, e.g. "contact group".
	Label string
	// SearchFields are the columns the search query parameter matches.
	SearchFields []string
}

var (
	ContactKind      = ResourceKind{Tag: "contact", Path: "/contacts", Label: "contact", SearchFields: []string{"first_name", "last_name", "email"}}
	ContactGroupKind = ResourceKind{Tag: "contact-group", Path: "/contact-groups", Label: "contact group", SearchFields: []string{"name"}}
	CampaignKind     = ResourceKind{Tag: "campaign", Path: "/campaigns", Label: "campaign", SearchFields: []string{"name", "subject"}}
	DomainKind       = ResourceKind{Tag: "domain", Path: "/domains", Label: "domain", SearchFields: []string{"name"}}
	SenderKind       = ResourceKind{Tag: "sender", Path: "/senders", Label: "sender", SearchFields: []string{"name", "email"}}
	TicketKind       = ResourceKind{Tag: "ticket", Path: "/tickets", Label: "ticket", SearchFields: []string{"subject"}}
	PlanKind         = ResourceKind{Tag: "plan", Path: "/plans", Label: "plan", SearchFields: []string{"name"}}
	BillingKind      = ResourceKind{Tag: "billing", Path: "/billing", Label: "billing record", SearchFields: []string{"reference"}}
)

// Kinds lists every resource in display order.
func Kinds() []ResourceKind {
	return []ResourceKind{
		ContactKind,
		ContactGroupKind,
		CampaignKind,
		DomainKind,
		SenderKind,
		TicketKind,
		PlanKind,
		BillingKind,
	}
}

// KindByTag looks a resource up by its tag.
func KindByTag(tag string) (ResourceKind, bool) {
	for _, k := range Kinds() {
		if k.Tag == tag {
			return k, true
		}
	}
	return ResourceKind{}, false
}

// Segment is Path without its leading slash, for joining onto a base URL.
func (k ResourceKind) Segment() string {
	return strings.TrimPrefix(k.Path, "/")
}
