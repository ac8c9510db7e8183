package vault

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/doc2md/doc2md/internal/core/domain"
)

func testProfiles() []domain.ProviderProfile {
	return []domain.ProviderProfile{
		{
			Name:     "work",
			Provider: domain.ProviderOpenAI,
			BaseURL:  "https://api.openai.com/v1",
			APIKey:   "k1",
			Model:    "gpt-4o-mini",
			Enabled:  true,
		},
		{
			Name:     "backup",
			Provider: domain.ProviderAnthropic,
			APIKey:   "k2",
			Model:    "claude-sonnet-4-5",
		},
	}
}

func TestSaveAndLoadProfiles(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "nested", "profiles.enc"))
	want := testProfiles()

	if err := store.SaveAll("pass", want); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	got, err := store.LoadAll("pass")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LoadAll() = %+v, want %+v", got, want)
	}
}

func TestLoadMissingStoreReturnsEmptyList(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "does-not-exist.enc"))

	got, err := store.LoadAll("pass")
	if err != nil {
		t.Fatalf("LoadAll() error = %v, want nil on missing store", err)
	}
	if len(got) != 0 {
		t.Fatalf("LoadAll() = %+v, want empty list", got)
	}
}

func TestSaveOverwritesPreviousStore(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "profiles.enc"))

	if err := store.SaveAll("pass", testProfiles()); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	replacement := []domain.ProviderProfile{{Name: "only", Provider: domain.ProviderGemini, APIKey: "k3", Enabled: true}}
	if err := store.SaveAll("pass", replacement); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	got, err := store.LoadAll("pass")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, replacement) {
		t.Fatalf("LoadAll() = %+v, want %+v", got, replacement)
	}
}

func TestLoadWrongPassphrase(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "profiles.enc"))
	if err := store.SaveAll("right", testProfiles()); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if _, err := store.LoadAll("wrong"); !domain.IsKind(err, domain.ErrDecryptFailed) {
		t.Fatalf("LoadAll() error = %v, want ErrDecryptFailed kind", err)
	}
}

func TestEmptyPassphraseRejectedBeforeIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.enc")
	store := NewProfileStore(path)

	if err := store.SaveAll("  ", testProfiles()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("SaveAll() error = %v, want ErrInvalidInput kind", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("SaveAll with empty passphrase touched the store file")
	}
	if _, err := store.LoadAll(""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("LoadAll() error = %v, want ErrInvalidInput kind", err)
	}
}

func TestResolveStorePathOverride(t *testing.T) {
	if got := ResolveStorePath("  /tmp/custom.enc  "); got != "/tmp/custom.enc" {
		t.Fatalf("ResolveStorePath(override) = %q", got)
	}
	got := ResolveStorePath("")
	if filepath.Base(got) != "profiles.enc" {
		t.Fatalf("ResolveStorePath(\"\") = %q, want a profiles.enc location", got)
	}
}
