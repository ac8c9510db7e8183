package worker

import (
	"sync"

	"github.com/doc2md/doc2md/internal/core/domain"
)

// ProfileCache holds the session's decrypted profiles. The vault stays
// stateless; the host loads profiles once per session and the worker reads
// the cached copy when resolving credentials for a job.
type ProfileCache struct {
	mu       sync.Mutex
	profiles []domain.ProviderProfile
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{}
}

func (c *ProfileCache) Set(profiles []domain.ProviderProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = append([]domain.ProviderProfile(nil), profiles...)
}

func (c *ProfileCache) Snapshot() []domain.ProviderProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ProviderProfile(nil), c.profiles...)
}

// Active resolves the enabled profile from the cached list.
func (c *ProfileCache) Active() (domain.ProviderProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ActiveProfile(c.profiles)
}
