package storage

import (
	"errors"
	"sync"
)

// Preference namespace and keys used for the stored session.
const (
	PrefsNamespace = "APP_PREFS"
	KeyAuthHeader  = "AUTH_HEADER"
	KeyUserID      = "USER_ID"

	// NoUserID is returned by UserID when no id has been stored.
	NoUserID int64 = -1
)

// CredentialStore persists the auth token and the current user id.
// Reads are served from a cache so they are safe from any goroutine.
type CredentialStore struct {
	prefs *Preferences

	mu       sync.RWMutex
	loaded   bool
	token    string
	hasToken bool
}

// NewCredentialStore returns a store over the APP_PREFS namespace of db.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{prefs: db.Preferences(PrefsNamespace)}
}

// AuthHeader returns the stored token. The boolean is false when no token is stored.
func (s *CredentialStore) AuthHeader() (string, bool, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token, s.hasToken, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		token, err := s.prefs.String(KeyAuthHeader)
		switch {
		case errors.Is(err, ErrNotFound):
			s.token, s.hasToken = "", false
		case err != nil:
			return "", false, err
		default:
			s.token, s.hasToken = token, token != ""
		}
		s.loaded = true
	}
	return s.token, s.hasToken, nil
}

// SetAuthHeader stores the token, replacing any previous one.
func (s *CredentialStore) SetAuthHeader(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.PutString(KeyAuthHeader, token); err != nil {
		return err
	}
	s.token, s.hasToken, s.loaded = token, token != "", true
	return nil
}

// ClearAuthHeader removes the stored token.
func (s *CredentialStore) ClearAuthHeader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.Remove(KeyAuthHeader); err != nil {
		return err
	}
	s.token, s.hasToken, s.loaded = "", false, true
	return nil
}

// UserID returns the stored user id or NoUserID.
func (s *CredentialStore) UserID() (int64, error) {
	return s.prefs.Int(KeyUserID, NoUserID)
}

// StoredKeys lists the keys currently held in the credential namespace.
func (s *CredentialStore) StoredKeys() ([]string, error) {
	return s.prefs.Keys()
}

// SetUserID stores the current user id.
func (s *CredentialStore) SetUserID(id int64) error {
	return s.prefs.PutInt(KeyUserID, id)
}
