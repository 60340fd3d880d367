package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lootgo/server/internal/loot"
)

// Engine wraps a single gopher-lua VM for loot classification hooks.
// Single-goroutine access only (the client step or the game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir/loot.
// A missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "loot")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load loot scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is used by tools and tests that embed a script.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasHook reports whether a global Lua function named name is defined.
func (e *Engine) HasHook(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

func (e *Engine) stackTable(s loot.ItemStack) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("type", lua.LString(s.Type))
	t.RawSetString("name", lua.LString(s.DisplayName()))
	t.RawSetString("count", lua.LNumber(s.Count))
	t.RawSetString("meta", lua.LString(s.Meta))
	t.RawSetString("stackable", lua.LBool(s.Stackable))
	t.RawSetString("max_stack", lua.LNumber(s.MaxStackSize()))
	t.RawSetString("rarity", lua.LString(s.Rarity.String()))
	t.RawSetString("rarity_level", lua.LNumber(s.Rarity))
	t.RawSetString("enchanted", lua.LBool(s.Enchanted))
	t.RawSetString("max_durability", lua.LNumber(s.MaxDurability))
	t.RawSetString("category", lua.LString(s.Category))
	return t
}

// IsInteresting calls the Lua is_interesting(item) hook. When the hook is
// missing, errors, or returns a non-boolean, loot.DefaultInteresting decides.
// Its signature fits loot.Predicate.
func (e *Engine) IsInteresting(s loot.ItemStack) bool {
	fn, ok := e.vm.GetGlobal("is_interesting").(*lua.LFunction)
	if !ok {
		return loot.DefaultInteresting(s)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.stackTable(s)); err != nil {
		e.log.Error("lua is_interesting error", zap.String("item", s.Type), zap.Error(err))
		return loot.DefaultInteresting(s)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	b, ok := ret.(lua.LBool)
	if !ok {
		e.log.Warn("lua is_interesting returned non-boolean", zap.String("type", ret.Type().String()))
		return loot.DefaultInteresting(s)
	}
	return bool(b)
}

// DespawnTicks calls the optional Lua despawn_ticks(item) hook used by the
// authority when a drop is spawned. def is returned when the hook is absent
// or fails; a negative script result is treated as def.
func (e *Engine) DespawnTicks(s loot.ItemStack, def int) int {
	fn, ok := e.vm.GetGlobal("despawn_ticks").(*lua.LFunction)
	if !ok {
		return def
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.stackTable(s)); err != nil {
		e.log.Error("lua despawn_ticks error", zap.String("item", s.Type), zap.Error(err))
		return def
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok || n < 0 {
		return def
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
