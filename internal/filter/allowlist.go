// Package filter stores the player's allowlist: item identities that the
// rare-only filter never hides.
package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/lootgo/server/internal/loot"
	"gopkg.in/yaml.v3"
)

// Entry matches a stack by exact type and exact metadata. An entry without
// metadata matches only stacks without metadata.
type Entry struct {
	ID   string `yaml:"id"`
	Meta string `yaml:"meta,omitempty"`
}

func (e Entry) Matches(s loot.ItemStack) bool {
	return !s.Empty() && s.Type == e.ID && s.Meta == e.Meta
}

type allowlistFile struct {
	Entries []Entry `yaml:"entries"`
}

// Allowlist is an insertion-ordered set of entries persisted to a YAML file
// after every change. Safe for concurrent use.
type Allowlist struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
	index   map[Entry]struct{}
}

// Load reads path. A missing file yields an empty list that will be created
// on the first change.
func Load(path string) (*Allowlist, error) {
	a := &Allowlist{path: path, index: make(map[Entry]struct{})}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}
	var f allowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse allowlist %s: %w", path, err)
	}
	for _, e := range f.Entries {
		if _, dup := a.index[e]; dup || e.ID == "" {
			continue
		}
		a.index[e] = struct{}{}
		a.entries = append(a.entries, e)
	}
	return a, nil
}

// Contains reports whether any entry matches s. Its signature fits
// loot.Predicate.
func (a *Allowlist) Contains(s loot.ItemStack) bool {
	if s.Empty() {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.index[Entry{ID: s.Type, Meta: s.Meta}]
	return ok
}

// ParseEntry reads "id" or "id#meta".
func ParseEntry(s string) (Entry, error) {
	id, meta, _ := strings.Cut(strings.TrimSpace(s), "#")
	if id == "" {
		return Entry{}, fmt.Errorf("allowlist entry %q: missing item id", s)
	}
	return Entry{ID: id, Meta: meta}, nil
}

// Stack returns a one-item stack with the entry's identity.
func (e Entry) Stack() loot.ItemStack {
	return loot.ItemStack{Type: e.ID, Meta: e.Meta, Count: 1}
}

// Add records the identity of s. Adding an existing identity is a no-op.
// If the file cannot be written the list is left unchanged.
func (a *Allowlist) Add(s loot.ItemStack) error {
	if s.Empty() {
		return nil
	}
	e := Entry{ID: s.Type, Meta: s.Meta}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.index[e]; ok {
		return nil
	}
	next := append(slices.Clip(a.entries), e)
	if err := a.saveLocked(next); err != nil {
		return err
	}
	a.index[e] = struct{}{}
	a.entries = next
	return nil
}

// Remove drops the entry with exactly the identity of s.
func (a *Allowlist) Remove(s loot.ItemStack) error {
	e := Entry{ID: s.Type, Meta: s.Meta}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.index[e]; !ok {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(a.entries), func(x Entry) bool { return x == e })
	if err := a.saveLocked(next); err != nil {
		return err
	}
	delete(a.index, e)
	a.entries = next
	return nil
}

func (a *Allowlist) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil
	}
	if err := a.saveLocked(nil); err != nil {
		return err
	}
	a.entries = nil
	clear(a.index)
	return nil
}

// Entries returns a copy in insertion order.
func (a *Allowlist) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Entry(nil), a.entries...)
}

// saveLocked writes entries to a temp file beside path and renames it over
// the list.
func (a *Allowlist) saveLocked(entries []Entry) error {
	raw, err := yaml.Marshal(allowlistFile{Entries: entries})
	if err != nil {
		return fmt.Errorf("encode allowlist: %w", err)
	}
	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create allowlist dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write allowlist: %w", err)
	}
	_, werr := tmp.Write(raw)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write allowlist: %w", werr)
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace allowlist: %w", err)
	}
	return nil
}
