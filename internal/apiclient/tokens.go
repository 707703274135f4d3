package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// CookieName is the key the session is stored under.
const CookieName = "Cookies"

// Session is the stored authentication state.
type Session struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	Credentials  *Credentials `json:"credentials,omitempty"`
}

// Credentials remembers who logged in. The password is never stored.
type Credentials struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// TokenStore persists the session. Load returns ErrNoSession when nothing
// is stored.
type TokenStore interface {
	Load() (Session, error)
	Save(Session) error
	// UpdateToken rewrites only the access token of the stored session.
	UpdateToken(token string) error
	Clear() error
}

// FileStore keeps the session in a JSON file of named cookies, under
// CookieName. Other cookies in the file are preserved.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := s.read()
	if err != nil {
		return Session{}, err
	}
	raw, ok := jar[CookieName]
	if !ok {
		return Session{}, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode %s cookie: %w", CookieName, err)
	}
	if sess.Token == "" && sess.RefreshToken == "" {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *FileStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(jar map[string]json.RawMessage) error {
		raw, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		jar[CookieName] = raw
		return nil
	})
}

func (s *FileStore) UpdateToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(jar map[string]json.RawMessage) error {
		raw, ok := jar[CookieName]
		if !ok {
			return ErrNoSession
		}
		// Round-trip through a map so fields this version does not know survive.
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decode %s cookie: %w", CookieName, err)
		}
		encoded, err := json.Marshal(token)
		if err != nil {
			return err
		}
		fields["token"] = encoded
		if jar[CookieName], err = json.Marshal(fields); err != nil {
			return err
		}
		return nil
	})
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(jar map[string]json.RawMessage) error {
		delete(jar, CookieName)
		return nil
	})
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	jar := map[string]json.RawMessage{}
	if len(data) == 0 {
		return jar, nil
	}
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("decode cookie file %s: %w", s.path, err)
	}
	return jar, nil
}

// update applies fn to the jar and writes it back atomically.
func (s *FileStore) update(fn func(map[string]json.RawMessage) error) error {
	jar, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(jar); err != nil {
		return err
	}

	data, err := json.MarshalIndent(jar, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cookies-*")
	if err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// MemoryStore is an in-process TokenStore.
type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

func (m *MemoryStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Session{}, ErrNoSession
	}
	return *m.sess, nil
}

func (m *MemoryStore) Save(sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &sess
	return nil
}

func (m *MemoryStore) UpdateToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	m.sess.Token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
