package data

import (
	"fmt"
	"os"

	"github.com/lootgo/server/internal/loot"
	"gopkg.in/yaml.v3"
)

// ItemInfo is one catalog entry.
type ItemInfo struct {
	Type          string `yaml:"type"`
	Name          string `yaml:"name"`
	Stackable     bool   `yaml:"stackable"`
	MaxStack      int    `yaml:"max_stack"`
	Rarity        string `yaml:"rarity"`
	MaxDurability int    `yaml:"max_durability"`
	Category      string `yaml:"category"`
}

type itemListFile struct {
	Items []ItemInfo `yaml:"items"`
}

// ItemTable holds item templates indexed by namespaced type id.
type ItemTable struct {
	items map[string]*ItemInfo
}

// Get returns an item by type, or nil if not found.
func (t *ItemTable) Get(typ string) *ItemInfo {
	return t.items[typ]
}

// Count returns total loaded items.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// Stack builds a stack of typ from its template. Unknown types become plain
// stackable common items so stored inventories survive catalog edits.
func (t *ItemTable) Stack(typ string, count int, meta string) loot.ItemStack {
	s := loot.ItemStack{Type: typ, Count: count, Meta: meta, Name: typ, Stackable: true}
	info := t.Get(typ)
	if info == nil {
		return s
	}
	s.Name = info.Name
	s.Stackable = info.Stackable
	s.MaxStack = info.MaxStack
	s.Rarity = loot.ParseRarity(info.Rarity)
	s.MaxDurability = info.MaxDurability
	s.Category = info.Category
	// metadata on gear is enchantment data in this catalog
	s.Enchanted = meta != "" && !info.Stackable
	return s
}

// LoadItemTable loads the item catalog from a YAML file.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	t := &ItemTable{items: make(map[string]*ItemInfo, len(f.Items))}
	for i := range f.Items {
		it := &f.Items[i]
		if it.Type == "" {
			return nil, fmt.Errorf("items[%d]: missing type", i)
		}
		if _, dup := t.items[it.Type]; dup {
			return nil, fmt.Errorf("items[%d]: duplicate type %q", i, it.Type)
		}
		if it.Stackable && it.MaxStack <= 0 {
			it.MaxStack = loot.DefaultMaxStack
		}
		if !it.Stackable {
			it.MaxStack = 1
		}
		t.items[it.Type] = it
	}
	return t, nil
}
