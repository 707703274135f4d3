package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/pkg"
)

const (
	dkimSelector = "mailsync"
	recordTTL    = 3600
)

type domainHandler struct {
	domains *Repository[domain.Domain]
}

func newDomainHandler(domains *Repository[domain.Domain]) *domainHandler {
	return &domainHandler{domains: domains}
}

func (h *domainHandler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group(Domains.Path + "/:id/records")
	g.GET("", h.Records)
	g.GET("/download", h.Download)
}

// Records handles GET /domains/:id/records.
func (h *domainHandler) Records(c *gin.Context) {
	d, err := h.domains.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, VerificationRecords(d))
}

// Download handles GET /domains/:id/records/download. The records are served
// as zone-file lines ready to paste into a DNS provider.
func (h *domainHandler) Download(c *gin.Context) {
	d, err := h.domains.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-records.txt"`, d.Name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(ZoneFile(VerificationRecords(d))))
}

// VerificationRecords derives the TXT records a domain must publish. The
// verification token and DKIM key are stable for a given domain id.
func VerificationRecords(d *domain.Domain) []domain.DNSRecord {
	sum := sha256.Sum256([]byte(d.ID + "/" + d.Name))
	token := hex.EncodeToString(sum[:16])
	dkim := hex.EncodeToString(sum[16:])

	return []domain.DNSRecord{
		{Type: "TXT", Host: d.Name, Value: "v=spf1 include:spf.mailsync.io ~all"},
		{Type: "TXT", Host: dkimSelector + "._domainkey." + d.Name, Value: "v=DKIM1; k=rsa; p=" + dkim},
		{Type: "TXT", Host: "_dmarc." + d.Name, Value: "v=DMARC1; p=none; rua=mailto:dmarc@" + d.Name},
		{Type: "TXT", Host: "_mailsync." + d.Name, Value: "mailsync-verification=" + token},
	}
}

// ZoneFile renders records as BIND zone-file lines.
func ZoneFile(records []domain.DNSRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s.\t%d\tIN\t%s\t%q\n", r.Host, recordTTL, r.Type, r.Value)
	}
	return b.String()
}
