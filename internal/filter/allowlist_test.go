package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lootgo/server/internal/loot"
)

func TestAllowlistExactMetaMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "allowlist.yaml")
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	plain := loot.ItemStack{Type: "minecraft:diamond", Count: 1}
	named := loot.ItemStack{Type: "minecraft:diamond", Count: 1, Meta: `{display:{Name:"x"}}`}

	if err := a.Add(plain); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !a.Contains(plain) {
		t.Fatalf("plain diamond should match")
	}
	if a.Contains(named) {
		t.Fatalf("entry without meta must not match a stack with meta")
	}

	if err := a.Add(named); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !a.Contains(named) {
		t.Fatalf("named diamond should match its own entry")
	}
	other := named
	other.Meta = `{display:{Name:"y"}}`
	if a.Contains(other) {
		t.Fatalf("different meta must not match")
	}
}

func TestAllowlistPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	a, _ := Load(path)
	a.Add(loot.ItemStack{Type: "a", Count: 1})
	a.Add(loot.ItemStack{Type: "b", Count: 1, Meta: "m"})
	a.Add(loot.ItemStack{Type: "a", Count: 5})

	b, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := b.Entries()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[1].Meta != "m" {
		t.Fatalf("unexpected entries %+v", got)
	}

	if err := b.Remove(loot.ItemStack{Type: "a", Count: 1}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	c, _ := Load(path)
	if len(c.Entries()) != 1 || c.Contains(loot.ItemStack{Type: "a", Count: 1}) {
		t.Fatalf("remove not persisted: %+v", c.Entries())
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	d, _ := Load(path)
	if len(d.Entries()) != 0 {
		t.Fatalf("clear not persisted")
	}
}

func TestEmptyStackNeverMatches(t *testing.T) {
	a, _ := Load(filepath.Join(t.TempDir(), "x.yaml"))
	a.Add(loot.ItemStack{Type: "a", Count: 1})
	if a.Contains(loot.ItemStack{Type: "a", Count: 0}) {
		t.Fatalf("empty stack matched")
	}
}

func TestFailedSaveLeavesListUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	path := filepath.Join(dir, "allowlist.yaml")
	a, _ := Load(path)
	keep := loot.ItemStack{Type: "a", Count: 1}
	if err := a.Add(keep); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// replace the directory with a file so every save fails
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	extra := loot.ItemStack{Type: "b", Count: 1}
	if err := a.Add(extra); err == nil {
		t.Fatalf("expected Add to fail")
	}
	if a.Contains(extra) || len(a.Entries()) != 1 {
		t.Fatalf("failed Add changed the list: %+v", a.Entries())
	}
	if err := a.Remove(keep); err == nil {
		t.Fatalf("expected Remove to fail")
	}
	if !a.Contains(keep) {
		t.Fatalf("failed Remove dropped the entry")
	}
	if err := a.Clear(); err == nil {
		t.Fatalf("expected Clear to fail")
	}
	if len(a.Entries()) != 1 || !a.Contains(keep) {
		t.Fatalf("failed Clear emptied the list: %+v", a.Entries())
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	a, _ := Load(filepath.Join(dir, "allowlist.yaml"))
	a.Add(loot.ItemStack{Type: "a", Count: 1})
	a.Add(loot.ItemStack{Type: "b", Count: 1})
	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0].Name() != "allowlist.yaml" {
		t.Fatalf("unexpected files in %s: %v", dir, names)
	}
}

func TestParseEntry(t *testing.T) {
	cases := []struct {
		in   string
		want Entry
	}{
		{"minecraft:diamond", Entry{ID: "minecraft:diamond"}},
		{" minecraft:diamond_sword#{Enchantments:[]} ", Entry{ID: "minecraft:diamond_sword", Meta: "{Enchantments:[]}"}},
		{"a#b#c", Entry{ID: "a", Meta: "b#c"}},
	}
	for _, c := range cases {
		got, err := ParseEntry(c.in)
		if err != nil || got != c.want {
			t.Fatalf("ParseEntry(%q) = %+v, %v", c.in, got, err)
		}
	}
	for _, bad := range []string{"", "#meta", "  "} {
		if _, err := ParseEntry(bad); err == nil {
			t.Fatalf("ParseEntry(%q): expected error", bad)
		}
	}
	e := Entry{ID: "x", Meta: "m"}
	if !e.Matches(e.Stack()) {
		t.Fatalf("entry does not match its own stack")
	}
}
