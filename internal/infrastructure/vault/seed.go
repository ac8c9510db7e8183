package vault

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doc2md/doc2md/internal/core/domain"
)

type seedFile struct {
	Profiles []domain.ProviderProfile `yaml:"profiles"`
}

// LoadSeed parses a plaintext YAML profile list for one-time import into the
// encrypted store. The seed file should be deleted after importing.
func LoadSeed(path string) ([]domain.ProviderProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse profile seed: %w", err)
	}

	for i, p := range seed.Profiles {
		provider, err := domain.ParseProvider(string(p.Provider))
		if err != nil {
			return nil, err
		}
		seed.Profiles[i].Provider = provider
	}
	if err := domain.ValidateProfiles(seed.Profiles); err != nil {
		return nil, err
	}
	return seed.Profiles, nil
}
