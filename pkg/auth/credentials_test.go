package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testProfile(name string) *Profile {
	return &Profile{
		Name:      name,
		Site:      "https://www.messenger.com",
		UserAgent: "TestAgent/1.0",
		Cookies: []Cookie{
			{Name: "c_user", Value: "100012345678", Domain: ".messenger.com", Path: "/"},
			{Name: "xs", Value: "secret_session_token_value", Domain: ".messenger.com", Path: "/"},
		},
	}
}

func TestProfileManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	if err := manager.Store(testProfile("work")); err != nil {
		t.Fatalf("Failed to store profile: %v", err)
	}

	retrieved, err := manager.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve profile: %v", err)
	}
	if len(retrieved.Cookies) != 2 || retrieved.Cookies[1].Value != "secret_session_token_value" {
		t.Errorf("Cookies mismatch: %+v", retrieved.Cookies)
	}
	if retrieved.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	profiles, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("Expected 1 profile, got %d", len(profiles))
	}

	if err := manager.Delete("work"); err != nil {
		t.Errorf("Failed to delete profile: %v", err)
	}
	if _, err := manager.Retrieve("work"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
	if err := manager.Delete("work"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound on second delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 profiles after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsIncompleteProfiles(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Profile{Cookies: testProfile("x").Cookies}); err == nil {
		t.Error("Expected an error for a profile without a name")
	}
	if err := manager.Store(&Profile{Name: "empty"}); err == nil {
		t.Error("Expected an error for a profile without cookies")
	}
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keyring locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	if err := manager.Store(testProfile("home")); err != nil {
		t.Fatalf("Expected the second store to accept the profile: %v", err)
	}
	if !working.Exists("home") {
		t.Error("Profile should be in the fallback store")
	}
}

func TestSanitizeProfile(t *testing.T) {
	profile := testProfile("work")
	sanitized := SanitizeProfile(profile)

	if sanitized.Cookies[1].Value == profile.Cookies[1].Value {
		t.Error("Cookie values should be masked")
	}
	if sanitized.Cookies[1].Value != "secr...alue" {
		t.Errorf("Unexpected mask %q", sanitized.Cookies[1].Value)
	}
	if profile.Cookies[1].Value != "secret_session_token_value" {
		t.Error("Sanitizing must not modify the original")
	}
	if SanitizeProfile(nil) != nil {
		t.Error("Expected nil for a nil profile")
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies, err := ParseCookieHeader(` c_user=42; xs="a%3Ab" ;; datr=x=y `, ".messenger.com")
	if err != nil {
		t.Fatalf("Failed to parse header: %v", err)
	}
	if len(cookies) != 3 {
		t.Fatalf("Expected 3 cookies, got %d", len(cookies))
	}
	if cookies[1].Value != "a%3Ab" {
		t.Errorf("Quotes should be trimmed, got %q", cookies[1].Value)
	}
	if cookies[2].Value != "x=y" {
		t.Errorf("Only the first '=' separates name and value, got %q", cookies[2].Value)
	}
	if cookies[0].Domain != ".messenger.com" || cookies[0].Path != "/" {
		t.Errorf("Unexpected scope %+v", cookies[0])
	}
	if got := CookieHeader(cookies); got != "c_user=42; xs=a%3Ab; datr=x=y" {
		t.Errorf("Unexpected header %q", got)
	}

	for _, bad := range []string{"", " ; ", "novalue", "=orphan"} {
		if _, err := ParseCookieHeader(bad, ""); !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("Expected ErrInvalidProfile for %q, got %v", bad, err)
		}
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.enc")

	store, err := NewEncryptedFileStoreWithPassphrase(path, "test_passphrase_123")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(testProfile("work")); err != nil {
		t.Fatalf("Failed to store profile: %v", err)
	}
	if err := store.Store(testProfile("home")); err != nil {
		t.Fatalf("Failed to store second profile: %v", err)
	}

	retrieved, err := store.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve profile: %v", err)
	}
	if retrieved.Cookies[1].Value != "secret_session_token_value" {
		t.Error("Cookie mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("secret_session_token_value")) {
		t.Error("File contains a plaintext cookie")
	}

	other, err := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("work"); err == nil || errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected a decryption error with the wrong passphrase, got %v", err)
	}

	if err := store.Delete("work"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.Delete("home"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed with the last profile")
	}
}

func TestEncryptedFileStoreUsesEnvironmentPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "from_env")
	path := filepath.Join(t.TempDir(), "profiles.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}
	if err := store.Store(testProfile("work")); err != nil {
		t.Fatal(err)
	}

	same, err := NewEncryptedFileStoreWithPassphrase(path, "from_env")
	if err != nil {
		t.Fatal(err)
	}
	if !same.Exists("work") {
		t.Error("Profile should decrypt with the environment passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvCookies, "c_user=42; xs=token")
	t.Setenv(EnvCookieDomain, ".messenger.com")
	t.Setenv(EnvUserAgent, "EnvAgent/2.0")

	store := NewEnvironmentStore()

	profile, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if profile.Name != "env" || profile.UserAgent != "EnvAgent/2.0" {
		t.Errorf("Unexpected profile %+v", profile)
	}
	if profile.Cookies[1].Domain != ".messenger.com" {
		t.Errorf("Unexpected cookie domain %q", profile.Cookies[1].Domain)
	}

	if err := store.Store(profile); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if !store.Exists("anything") {
		t.Error("Environment store should report cookies as present")
	}

	t.Setenv(EnvCookies, "")
	if _, err := store.Retrieve("x"); err != ErrProfileNotFound {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = fmt.Errorf("injected error")

	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestCookieGuideMentionsHeader(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieExtractionGuide(&buf)
	ShowQuickExtractGuide(&buf)

	if !strings.Contains(buf.String(), "Cookie") {
		t.Error("Guide should explain where the cookie header is")
	}
}
