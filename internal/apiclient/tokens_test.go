package apiclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	s := NewFileStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	want := Session{Token: "a", RefreshToken: "r", Credentials: &Credentials{Email: "jane@example.com"}}
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_CookieLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","Cookies":{"token":"a","refresh_token":"r","extra":1}}`), 0o600))
	s := NewFileStore(path)

	require.NoError(t, s.UpdateToken("b"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var jar map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &jar))
	assert.JSONEq(t, `"dark"`, string(jar["theme"]), "unrelated cookies survive")
	assert.JSONEq(t, `{"token":"b","refresh_token":"r","extra":1}`, string(jar[CookieName]))
}

func TestFileStore_UpdateTokenWithoutSession(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "cookies.json"))
	assert.ErrorIs(t, s.UpdateToken("x"), ErrNoSession)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore(t *testing.T) {
	var s MemoryStore
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.UpdateToken("x"), ErrNoSession)

	require.NoError(t, s.Save(Session{Token: "a", RefreshToken: "r"}))
	require.NoError(t, s.UpdateToken("b"))
	got, _ := s.Load()
	assert.Equal(t, Session{Token: "b", RefreshToken: "r"}, got)
}
