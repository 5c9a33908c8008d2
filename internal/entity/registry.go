// Package entity holds the immutable set of tracked entities (the brand and
// its competitors) and the lower-case identifier strings that mark a mention
// of each one in text.
package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
)

// Entity is a named brand or competitor.
type Entity struct {
	Name        string   `json:"name"`
	Identifiers []string `json:"identifiers"`
	Brand       bool     `json:"brand"`
}

// Registry maps entity names to identifiers. It is built once and never
// mutated, so it is safe to share across goroutines.
type Registry struct {
	brand       string
	order       []string
	entities    map[string]Entity
	competitors []string
}

// NewRegistry builds a registry from configuration. Names and identifiers are
// lower-cased, blanks are dropped and duplicates inside one entity collapse.
// An identifier claimed by two entities is rejected.
func NewRegistry(cfg config.EntitiesConfig) (*Registry, error) {
	r := &Registry{entities: make(map[string]Entity)}
	owner := make(map[string]string)

	add := func(ec config.EntityConfig, brand bool) error {
		name := strings.ToLower(strings.TrimSpace(ec.Name))
		if name == "" {
			return fmt.Errorf("entity: empty name")
		}
		if _, dup := r.entities[name]; dup {
			return fmt.Errorf("entity: duplicate entity %q", name)
		}
		ids := make([]string, 0, len(ec.Identifiers))
		seen := make(map[string]bool, len(ec.Identifiers))
		for _, raw := range ec.Identifiers {
			id := strings.ToLower(strings.TrimSpace(raw))
			if id == "" || seen[id] {
				continue
			}
			if other, taken := owner[id]; taken {
				return fmt.Errorf("entity: identifier %q shared by %q and %q", id, other, name)
			}
			seen[id] = true
			owner[id] = name
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return fmt.Errorf("entity: %q has no identifiers", name)
		}
		r.entities[name] = Entity{Name: name, Identifiers: ids, Brand: brand}
		r.order = append(r.order, name)
		if brand {
			r.brand = name
		} else {
			r.competitors = append(r.competitors, name)
		}
		return nil
	}

	if err := add(cfg.Brand, true); err != nil {
		return nil, err
	}
	for _, c := range cfg.Competitors {
		if err := add(c, false); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns the registry built from the compiled-in entity list.
func Default() *Registry {
	r, err := NewRegistry(config.DefaultEntities())
	if err != nil {
		panic(err)
	}
	return r
}

// IdentifiersFor returns the identifiers of the named entity in declaration
// order. Lookup is case-insensitive; an unknown name yields an empty slice.
func (r *Registry) IdentifiersFor(name string) []string {
	e, ok := r.entities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return []string{}
	}
	out := make([]string, len(e.Identifiers))
	copy(out, e.Identifiers)
	return out
}

// Known reports whether name is a registered entity.
func (r *Registry) Known(name string) bool {
	_, ok := r.entities[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// OtherEntities returns the sorted names of every entity except name.
func (r *Registry) OtherEntities(name string) []string {
	self := strings.ToLower(strings.TrimSpace(name))
	out := make([]string, 0, len(r.entities))
	for n := range r.entities {
		if n != self {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// OtherIdentifiers returns the identifiers of every entity except name,
// ordered by entity name.
func (r *Registry) OtherIdentifiers(name string) []string {
	var out []string
	for _, other := range r.OtherEntities(name) {
		out = append(out, r.entities[other].Identifiers...)
	}
	return out
}

// Mentions reports whether text contains any identifier of the named entity.
// Matching is a case-insensitive substring test.
func (r *Registry) Mentions(text, name string) bool {
	lower := strings.ToLower(text)
	for _, id := range r.IdentifiersFor(name) {
		if strings.Contains(lower, id) {
			return true
		}
	}
	return false
}

// Brand returns the brand entity's name.
func (r *Registry) Brand() string { return r.brand }

// Competitors returns competitor names in declaration order.
func (r *Registry) Competitors() []string {
	out := make([]string, len(r.competitors))
	copy(out, r.competitors)
	return out
}

// Names returns every entity name, brand first.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entities returns every entity, brand first.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(r.order))
	for _, n := range r.order {
		e := r.entities[n]
		e.Identifiers = append([]string(nil), e.Identifiers...)
		out = append(out, e)
	}
	return out
}
