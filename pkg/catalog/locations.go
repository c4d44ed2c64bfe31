package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hazyhaar/istat-census/pkg/itter"
)

// Location is one territorial unit of the catalog.
type Location struct {
	Code string     `json:"code"`
	Name string     `json:"name"`
	Type itter.Type `json:"type"`
}

// Locations holds the territorial partitions loaded from a Store and
// answers code and name lookups. It is read-only between reloads.
type Locations struct {
	store          *Store
	municipalities bool

	mu      sync.RWMutex
	byCode  map[string]Location
	byName  map[string]string
	entries map[itter.Type][]Entry
}

// NewLocations creates an empty registry over store. Municipalities are only
// loaded when withMunicipalities is set.
func NewLocations(store *Store, withMunicipalities bool) *Locations {
	return &Locations{
		store:          store,
		municipalities: withMunicipalities,
		byCode:         make(map[string]Location),
		byName:         make(map[string]string),
		entries:        make(map[itter.Type][]Entry),
	}
}

// Load reads the area, region and province files (and municipalities when
// configured) and swaps them in. A missing partition file is an error.
func (l *Locations) Load() error {
	types := []itter.Type{itter.Areas, itter.Regions, itter.Provinces}
	if l.municipalities {
		types = append(types, itter.Municipalities)
	}

	byCode := make(map[string]Location)
	byName := make(map[string]string)
	entries := make(map[itter.Type][]Entry, len(types))
	for _, t := range types {
		list, err := l.store.Territories(t)
		if err != nil {
			return fmt.Errorf("load %s: %w", t.Name(), err)
		}
		entries[t] = list
		for _, e := range list {
			byCode[e.Code] = Location{Code: e.Code, Name: e.Name, Type: t}
			key := NormalizeName(e.Name)
			if _, dup := byName[key]; !dup {
				byName[key] = e.Code
			}
		}
	}

	l.mu.Lock()
	l.byCode, l.byName, l.entries = byCode, byName, entries
	l.mu.Unlock()
	return nil
}

// Reload reloads every partition from disk.
func (l *Locations) Reload() error {
	return l.Load()
}

// Name returns the display name of code.
func (l *Locations) Name(code string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.byCode[code]
	return loc.Name, ok
}

// Lookup returns the location with the given code.
func (l *Locations) Lookup(code string) (Location, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return loc, ok
}

// Code returns the code of a location name, ignoring case and accents.
// When two partitions share a name the broader one wins (areas before
// regions before provinces).
func (l *Locations) Code(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	code, ok := l.byName[NormalizeName(name)]
	return code, ok
}

// Entries returns a copy of the loaded partition t, sorted by name.
// Municipalities not loaded in memory are read from disk.
func (l *Locations) Entries(t itter.Type) ([]Entry, error) {
	l.mu.RLock()
	list, ok := l.entries[t]
	l.mu.RUnlock()
	if ok {
		return append([]Entry(nil), list...), nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("unknown location type %q", t)
	}
	return l.store.Territories(t)
}

// Shard returns the municipalities whose name starts with letter.
func (l *Locations) Shard(letter string) ([]Entry, error) {
	return l.store.Shard(strings.ToUpper(letter))
}

// Letters lists the municipality shards present on disk.
func (l *Locations) Letters() ([]string, error) {
	pattern := filepath.Join(l.store.Dir(), TerritoryDir, itter.ShardFileName("*"))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	prefix := itter.Municipalities.Name() + "_"
	letters := make([]string, 0, len(matches))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".jsonl")
		letters = append(letters, strings.TrimPrefix(base, prefix))
	}
	sort.Strings(letters)
	return letters, nil
}

// Count returns the number of loaded locations.
func (l *Locations) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byCode)
}

// Counts returns the number of loaded locations per partition.
func (l *Locations) Counts() map[itter.Type]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[itter.Type]int, len(l.entries))
	for t, list := range l.entries {
		out[t] = len(list)
	}
	return out
}

// IsMissing reports whether err comes from an absent catalog file, i.e. the
// catalog has not been built yet.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist)
}
