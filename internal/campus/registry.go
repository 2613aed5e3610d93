package campus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// DefaultSensitiveCategories applies to campuses that do not list their own.
var DefaultSensitiveCategories = []string{"ID Cards", "Wallet/Bags"}

type Campus struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	EmailDomain         string   `json:"email_domain"`
	SensitiveCategories []string `json:"sensitive_categories"`
	Locations           []string `json:"locations"`
}

type CampusesFile struct {
	Campuses []Campus `json:"campuses"`
}

type Registry struct {
	mu       sync.RWMutex
	campuses map[string]*Campus
	domains  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		campuses: make(map[string]*Campus),
		domains:  make(map[string]string),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read campuses config: %w", err)
	}

	var file CampusesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse campuses config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Campuses {
		if err := registry.Register(&file.Campuses[i]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *Registry) Register(c *Campus) error {
	if c.ID == "" {
		return fmt.Errorf("campus id is required")
	}
	domain := normalizeDomain(c.EmailDomain)
	if domain == "" {
		return fmt.Errorf("campus %s: email_domain is required", c.ID)
	}
	if len(c.SensitiveCategories) == 0 {
		c.SensitiveCategories = DefaultSensitiveCategories
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if other, ok := r.domains[domain]; ok && other != c.ID {
		return fmt.Errorf("email domain %s is already used by campus %s", domain, other)
	}
	r.campuses[c.ID] = c
	r.domains[domain] = c.ID
	return nil
}

func (r *Registry) Get(id string) *Campus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.campuses[id]
}

func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.campuses[id]
	return ok
}

// ByEmail resolves the campus whose domain the address belongs to.
func (r *Registry) ByEmail(email string) (*Campus, bool) {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.domains[normalizeDomain(domain)]
	if !ok {
		return nil, false
	}
	return r.campuses[id], true
}

func (r *Registry) IsSensitive(id, category string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	categories := DefaultSensitiveCategories
	if c, ok := r.campuses[id]; ok {
		categories = c.SensitiveCategories
	}
	for _, s := range categories {
		if strings.EqualFold(s, category) {
			return true
		}
	}
	return false
}

func (r *Registry) Name(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.campuses[id]; ok {
		return c.Name
	}
	return ""
}

func (r *Registry) All() []*Campus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Campus, 0, len(r.campuses))
	for _, c := range r.campuses {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
}
