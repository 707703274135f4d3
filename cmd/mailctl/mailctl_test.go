package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/mailsync/internal/apiclient"
	"github.com/simp-lee/mailsync/internal/testserver"
)

type harness struct {
	t      *testing.T
	config string
	email  string
}

// newHarness starts a server, registers an account and writes a config
// file pointing mailctl at it.
func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := testserver.New(t)

	name, email, password := srv.Account()
	api, err := apiclient.New(srv.APIURL(), apiclient.WithTokenStore(&apiclient.MemoryStore{}))
	require.NoError(t, err)
	_, err = api.Register(context.Background(), name, email, password)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "mailctl.yaml")
	cfg := fmt.Sprintf(`log:
  level: "error"
  format: "text"
client:
  base_url: %q
  cookie_path: %q
  debounce_delay: "10ms"
  retry:
    attempts: 1
    backoff: "1ms"
`, srv.APIURL(), filepath.Join(dir, "cookies.json"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &harness{t: t, config: path, email: email}
}

func (h *harness) run(stdin string, args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"-config", h.config}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (h *harness) login() {
	h.t.Helper()
	code, _, stderr := h.run(testserver.Password+"\n", "login", h.email)
	require.Equal(h.t, 0, code, stderr)
}

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, strings.NewReader(""), &out, &errOut))
	assert.Contains(t, errOut.String(), "usage: mailctl")

	h := newHarness(t)
	code, _, stderr := h.run("", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, stderr = h.run("", "contacts")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "needs a subcommand")

	code, _, _ = h.run("", "-format", "xml", "contacts", "list")
	assert.Equal(t, 2, code)
}

func TestRun_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("", "contacts", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error:")
}

func TestRun_LoginCreateListDelete(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(testserver.Password+"\n", "login", h.email)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "ok: signed in as Tester")

	code, stdout, stderr := h.run("", "contacts", "create", "-email", "jane@x.com", "-first", "Jane", "-last", "Doe", "-from", "web")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "ok: Contact created successfully")
	id := strings.TrimSpace(stdout)
	require.NotEmpty(t, id)

	code, stdout, stderr = h.run("", "contacts", "list")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "EMAIL")
	assert.Contains(t, stdout, "Jane Doe")
	assert.Contains(t, stdout, "jane@x.com")
	assert.Contains(t, stdout, "page 1 of 1, 1 contact\n")

	code, stdout, stderr = h.run("", "-format", "yaml", "contact", "get", id)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "email: jane@x.com")
	assert.Contains(t, stdout, "id: "+id)

	code, _, stderr = h.run("", "contacts", "delete", id, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: 1 of 2 contacts could not be deleted: contact not found")

	code, stdout, _ = h.run("", "contacts", "list", "-search", "jane")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "no contacts")

	code, _, stderr = h.run("", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "info: signed out")
}

func TestRun_ImportAndAssign(t *testing.T) {
	h := newHarness(t)
	h.login()

	file := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(file, []byte("Email,First Name\njane@x.com,Jane\nbroken,Bad\n"), 0o600))

	code, stdout, stderr := h.run("", "contacts", "import", file)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "ok: 1 contacts imported")
	assert.Contains(t, stderr, "info: 1 of 2 rows skipped")
	assert.Contains(t, stdout, "ROW")
	assert.Contains(t, stdout, "3 ")

	code, stdout, stderr = h.run("", "-format", "yaml", "contacts", "list")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "total_count: 1")

	code, _, stderr = h.run("", "contacts", "assign", "some-contact")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: choose where to add the selected contacts first")
}

func TestRun_DomainRecords(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, stdout, stderr := h.run("", "domains", "list")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "no domains")

	code, _, stderr = h.run("", "domains", "records", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: domain not found")
}

func TestRun_Watch(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, _, stderr := h.run("", "contacts", "create", "-email", "jane@x.com", "-first", "Jane")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := h.run("jan\njane\n", "watch", "contacts")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `-- contacts "jane"`)
	assert.Contains(t, stdout, "jane@x.com")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1,234.56 USD", money(123456, "USD"))
	assert.Equal(t, "0.05 EUR", money(5, "EUR"))
	assert.Equal(t, "-19.00", money(-1900, ""))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no contacts", summary(listing{label: "contact"}))
	assert.Equal(t, "page 2 of 3, 1,204 contacts", summary(listing{label: "contact", total: 1204, pages: 3, number: 2}))
	assert.Equal(t, "page 1 of 1, 1 contact", summary(listing{label: "contact", total: 1, pages: 1, number: 1}))
}

func TestWriteYAML_UsesJSONNamesInBlockStyle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
		Flag  string   `json:"flag"`
	}{Name: "Jane", Count: 2, Tags: []string{"a"}, Flag: "true"}))
	assert.Equal(t, "name: Jane\ncount: 2\ntags:\n  - a\nflag: \"true\"\n", buf.String())
}
