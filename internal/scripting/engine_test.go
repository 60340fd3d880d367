package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lootgo/server/internal/loot"
)

const filterScript = `
function is_interesting(item)
  if item.type == "minecraft:ender_pearl" then return true end
  if item.category == "weapon" then return false end
  return item.max_durability > 0
end

function despawn_ticks(item)
  if item.rarity_level >= 2 then return 12000 end
  return -1
end
`

func TestIsInterestingHook(t *testing.T) {
	e, err := NewEngineFromString(filterScript, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()

	if !e.IsInteresting(loot.ItemStack{Type: "minecraft:ender_pearl", Count: 1}) {
		t.Fatalf("script should keep ender pearls")
	}
	if e.IsInteresting(loot.ItemStack{Type: "minecraft:iron_sword", Count: 1, Category: "weapon", MaxDurability: 250}) {
		t.Fatalf("script rejects weapons, default must not override")
	}
	if e.IsInteresting(loot.ItemStack{Type: "minecraft:dirt", Count: 1}) {
		t.Fatalf("dirt is not interesting")
	}
}

func TestFallbackWithoutHook(t *testing.T) {
	e, err := NewEngineFromString(`x = 1`, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()
	if e.HasHook("is_interesting") {
		t.Fatalf("no hook expected")
	}
	sword := loot.ItemStack{Type: "minecraft:iron_sword", Count: 1, Category: "weapon"}
	if !e.IsInteresting(sword) {
		t.Fatalf("default predicate should keep weapons")
	}
	if got := e.DespawnTicks(sword, 6000); got != 6000 {
		t.Fatalf("expected default despawn, got %d", got)
	}
}

func TestFallbackOnScriptError(t *testing.T) {
	e, err := NewEngineFromString(`function is_interesting(item) error("boom") end`, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer e.Close()
	if !e.IsInteresting(loot.ItemStack{Type: "x", Count: 1, MaxDurability: 10}) {
		t.Fatalf("error should fall back to default (durability => interesting)")
	}
	if e.IsInteresting(loot.ItemStack{Type: "y", Count: 1}) {
		t.Fatalf("error fallback should reject plain items")
	}
}

func TestDespawnTicksHook(t *testing.T) {
	e, _ := NewEngineFromString(filterScript, zap.NewNop())
	defer e.Close()
	if got := e.DespawnTicks(loot.ItemStack{Type: "a", Count: 1, Rarity: loot.Rare}, 6000); got != 12000 {
		t.Fatalf("rare despawn: got %d", got)
	}
	if got := e.DespawnTicks(loot.ItemStack{Type: "a", Count: 1}, 6000); got != 6000 {
		t.Fatalf("negative result should use default, got %d", got)
	}
}

func TestNewEngineLoadsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "loot"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loot", "filter.lua"), []byte(filterScript), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if !e.HasHook("is_interesting") {
		t.Fatalf("hook not loaded from dir")
	}

	empty, err := NewEngine(filepath.Join(dir, "missing"), zap.NewNop())
	if err != nil {
		t.Fatalf("missing dir should not fail: %v", err)
	}
	empty.Close()
}
