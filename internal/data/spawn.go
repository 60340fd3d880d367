package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnPoint seeds the world with a drop and re-creates it after it is gone.
type SpawnPoint struct {
	Type         string  `yaml:"type"`
	Count        int     `yaml:"count"`
	Meta         string  `yaml:"meta"`
	X            float64 `yaml:"x"`
	Y            float64 `yaml:"y"`
	Z            float64 `yaml:"z"`
	Spread       float64 `yaml:"spread"`        // random XZ offset radius
	Copies       int     `yaml:"copies"`        // drops created per spawn
	RespawnTicks int     `yaml:"respawn_ticks"` // 0 = spawn once at boot
}

type spawnListFile struct {
	Spawns []SpawnPoint `yaml:"spawns"`
}

// LoadSpawnList loads loot spawn points from a YAML file.
func LoadSpawnList(path string, items *ItemTable) ([]SpawnPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot_spawns: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot_spawns: %w", err)
	}
	for i := range f.Spawns {
		sp := &f.Spawns[i]
		if items != nil && items.Get(sp.Type) == nil {
			return nil, fmt.Errorf("spawns[%d]: unknown item type %q", i, sp.Type)
		}
		if sp.Count <= 0 {
			sp.Count = 1
		}
		if sp.Copies <= 0 {
			sp.Copies = 1
		}
	}
	return f.Spawns, nil
}
