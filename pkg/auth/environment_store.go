package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvCookies      = "CHATSCRAPE_COOKIES"
	EnvCookieDomain = "CHATSCRAPE_COOKIE_DOMAIN"
	EnvUserAgent    = "CHATSCRAPE_USER_AGENT"
)

// EnvironmentStore implements ProfileStore over a cookie header in the
// environment. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based profile store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve builds a profile from CHATSCRAPE_COOKIES. Any name matches,
// an empty one becomes "env".
func (e *EnvironmentStore) Retrieve(name string) (*Profile, error) {
	header := os.Getenv(EnvCookies)
	if header == "" {
		return nil, ErrProfileNotFound
	}

	cookies, err := ParseCookieHeader(header, os.Getenv(EnvCookieDomain))
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = "env"
	}

	return &Profile{
		Name:         name,
		Cookies:      cookies,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single profile when the environment carries cookies
func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve("")
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the environment carries cookies
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvCookies) != ""
}
