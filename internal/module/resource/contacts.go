package resource

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/pkg"
)

const (
	maxImportBytes = 5 << 20
	importBatch    = 100
)

type contactHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func newContactHandler(db *gorm.DB, logger *slog.Logger) *contactHandler {
	return &contactHandler{db: db, logger: logger}
}

func (h *contactHandler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group(Contacts.Path)
	g.POST("/import", h.Import)
	g.GET("/import/sample", h.Sample)
}

// Import handles POST /contacts/import.
func (h *contactHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	fh, err := c.FormFile(domain.ImportField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkg.Fail(c, http.StatusRequestEntityTooLarge, "import file exceeds 5 MB")
			return
		}
		pkg.Fail(c, http.StatusBadRequest, "a CSV file is required in the \""+domain.ImportField+"\" field")
		return
	}
	f, err := fh.Open()
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeInternal, "could not read upload", err))
		return
	}
	defer f.Close()

	result, err := h.importCSV(c.Request.Context(), f)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "contacts imported",
		slog.Int("total", result.Total),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)
	pkg.Respond(c, http.StatusOK, fmt.Sprintf("%d contacts imported", result.Imported), result)
}

// Sample handles GET /contacts/import/sample.
func (h *contactHandler) Sample(c *gin.Context) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(domain.ImportColumns)
	_ = w.Write([]string{"Jane", "Doe", "jane@example.com", "website"})
	_ = w.Write([]string{"John", "Smith", "john@example.com", "newsletter"})
	w.Flush()

	c.Header("Content-Disposition", `attachment; filename="contacts_sample.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// importCSV parses r and inserts every valid row in one transaction. Rows that
// fail validation, repeat an email seen earlier in the file, or match an
// existing contact are skipped and reported.
func (h *contactHandler) importCSV(ctx context.Context, r io.Reader) (*domain.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewAppError(domain.CodeValidation, "import file is empty", nil)
		}
		return nil, domain.NewAppError(domain.CodeValidation, "import file is not valid CSV", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["email"]; !ok {
		return nil, domain.NewAppError(domain.CodeValidation, "import file must have an Email column", nil)
	}

	result := &domain.ImportResult{Errors: []domain.ImportRowError{}}
	skip := func(row int, msg string) {
		result.Skipped++
		result.Errors = append(result.Errors, domain.ImportRowError{Row: row, Message: msg})
	}

	var (
		rows   []domain.Contact
		lines  []int
		emails []string
		seen   = map[string]bool{}
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.Total++
		if err != nil {
			skip(line, "malformed CSV row")
			continue
		}

		contact := domain.Contact{
			FirstName:    field(record, cols, "first name"),
			LastName:     field(record, cols, "last name"),
			Email:        field(record, cols, "email"),
			From:         field(record, cols, "from"),
			IsSubscribed: true,
		}
		_ = Contacts.normalize(&contact)
		if err := binding.Validator.ValidateStruct(&contact); err != nil {
			skip(line, pkg.DescribeValidation(err, &contact))
			continue
		}
		if seen[contact.Email] {
			skip(line, "duplicate email "+contact.Email+" in file")
			continue
		}
		seen[contact.Email] = true

		rows = append(rows, contact)
		lines = append(lines, line)
		emails = append(emails, contact.Email)
	}

	err = pkg.WithTx(ctx, h.db, func(tx *gorm.DB) error {
		var existing []string
		if len(emails) > 0 {
			if err := tx.Model(&domain.Contact{}).Where("email IN ?", emails).Pluck("email", &existing).Error; err != nil {
				return err
			}
		}
		taken := make(map[string]bool, len(existing))
		for _, e := range existing {
			taken[e] = true
		}

		fresh := rows[:0]
		for i, contact := range rows {
			if taken[contact.Email] {
				skip(lines[i], "contact "+contact.Email+" already exists")
				continue
			}
			fresh = append(fresh, contact)
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(fresh, importBatch).Error; err != nil {
			return err
		}
		result.Imported = len(fresh)
		return nil
	})
	if err != nil {
		return nil, pkg.MapDBError(err, Contacts.Label)
	}
	return result, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
