package irradiance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// Map manages the named irradiance providers and the one currently in use.
type Map struct {
	mu        sync.Mutex
	providers map[string]Provider
	active    string
}

// NewMap creates a new irradiance Map.
func NewMap() *Map {
	return &Map{
		providers: make(map[string]Provider),
	}
}

// Provider returns the provider for the given name.
func (m *Map) Provider(name string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prov, ok := m.providers[name]; ok {
		return prov, nil
	}
	return nil, fmt.Errorf("unknown irradiance provider: %s", name)
}

// SetProvider sets the provider for the given name.
func (m *Map) SetProvider(name string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = provider
}

// Names returns the registered provider names, sorted.
func (m *Map) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use selects the provider FetchDaily delegates to.
func (m *Map) Use(name string) error {
	if _, err := m.Provider(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = name
	return nil
}

// FetchDaily implements Provider using the selected provider.
func (m *Map) FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error) {
	m.mu.Lock()
	name := m.active
	m.mu.Unlock()
	if name == "" {
		return nil, fmt.Errorf("no irradiance provider selected")
	}
	p, err := m.Provider(name)
	if err != nil {
		return nil, err
	}
	return p.FetchDaily(ctx, lat, lon, start, end)
}
