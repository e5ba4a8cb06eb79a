package subpop

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Static is an in-memory Source, usually loaded from YAML:
//
//	tenants:
//	  study-a:
//	    - id: teens
//	      name: Teen consent
//	      required: true
//	      criteria:
//	        allOfGroups: [teen]
type Static struct {
	mu      sync.RWMutex
	tenants map[string][]Subpopulation
}

type staticFile struct {
	Tenants map[string][]Subpopulation `yaml:"tenants"`
}

// NewStatic builds a source from records grouped by tenant id.
func NewStatic(tenants map[string][]Subpopulation) *Static {
	s := &Static{tenants: make(map[string][]Subpopulation, len(tenants))}
	for tenantID, subs := range tenants {
		for _, sp := range subs {
			if sp.TenantID == "" {
				sp.TenantID = tenantID
			}
			s.tenants[tenantID] = append(s.tenants[tenantID], sp)
		}
	}
	return s
}

// LoadStatic decodes a YAML document with a top-level tenants map.
func LoadStatic(r io.Reader) (*Static, error) {
	var f staticFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode subpopulations: %w", err)
	}
	return NewStatic(f.Tenants), nil
}

// LoadStaticFile reads path with LoadStatic.
func LoadStaticFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadStatic(f)
}

// Load implements Source.
func (s *Static) Load(_ context.Context, tenantID string) ([]Subpopulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.tenants[tenantID]), nil
}

// Create implements Creator. An existing id is left untouched.
func (s *Static) Create(_ context.Context, sp Subpopulation) error {
	if sp.ID == "" || sp.TenantID == "" {
		return ErrInvalidSubpopulation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants[sp.TenantID] {
		if existing.ID == sp.ID {
			return nil
		}
	}
	s.tenants[sp.TenantID] = append(s.tenants[sp.TenantID], sp)
	return nil
}

// Tenants returns the tenant ids known to the source.
func (s *Static) Tenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
