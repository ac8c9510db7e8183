package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doc2md/doc2md/internal/core/domain"
)

const storeVersion = 1

type storePayload struct {
	Version  int                      `json:"version"`
	Profiles []domain.ProviderProfile `json:"profiles"`
}

// ProfileStore reads and writes the encrypted profile file. It is stateless:
// the key is re-derived on every call and never cached, bounding how long
// secrets live in memory.
type ProfileStore struct {
	path string
}

func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// ResolveStorePath returns the explicit override when set, else a file under
// the platform config directory.
func ResolveStorePath(override string) string {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed
	}
	root, err := os.UserConfigDir()
	if err != nil {
		root = "."
	}
	return filepath.Join(root, "doc2md", "profiles.enc")
}

// SaveAll fully overwrites the store with the given profiles.
func (s *ProfileStore) SaveAll(passphrase string, profiles []domain.ProviderProfile) error {
	if strings.TrimSpace(passphrase) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save profiles", errors.New("passphrase must not be empty"))
	}

	payload := storePayload{Version: storeVersion, Profiles: profiles}
	plain, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize profiles: %w", err)
	}

	blob, err := EncryptBlob(plain, passphrase)
	if err != nil {
		return fmt.Errorf("encrypt profiles: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create profile directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("write encrypted profile store: %w", err)
	}
	return nil
}

// LoadAll decrypts and returns the stored profiles. A missing store is a
// first run, not an error.
func (s *ProfileStore) LoadAll(passphrase string) ([]domain.ProviderProfile, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load profiles", errors.New("passphrase must not be empty"))
	}

	blob, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.ProviderProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read encrypted profile store: %w", err)
	}

	plain, err := DecryptBlob(blob, passphrase)
	if err != nil {
		return nil, err
	}

	var payload storePayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("deserialize profiles: %w", err)
	}
	if payload.Profiles == nil {
		return []domain.ProviderProfile{}, nil
	}
	return payload.Profiles, nil
}
