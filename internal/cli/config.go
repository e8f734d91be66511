package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/sidefx"
)

// DefaultTickMs is the frame length used when a game config names none.
const DefaultTickMs = 16

// GameConfig describes one game: where its scripts live and how the engine
// is set up.
//
//	scripts: scenes
//	start: gary
//	menu: gj
//	slots: 21000
//	collision_policy: kill_replace
//	full_scan: false
//	tick_ms: 16
//	save_db: saves.db
type GameConfig struct {
	// Scripts is the directory of CUE scene scripts. Required.
	Scripts string `yaml:"scripts"`

	// Start is the first location, e.g. "gary" or "gary:120".
	Start string `yaml:"start,omitempty"`

	// Menu is the world and room letters of the menu location, e.g. "gj".
	Menu string `yaml:"menu,omitempty"`

	// Slots is how many state keys a save persists.
	Slots int `yaml:"slots,omitempty"`

	// CollisionPolicy is kill_replace, stop_replace or keep_existing.
	CollisionPolicy string `yaml:"collision_policy,omitempty"`

	// FullScan evaluates every rule of every scope on every tick.
	FullScan bool `yaml:"full_scan,omitempty"`

	// TickMs is the elapsed time passed to each Update.
	TickMs int `yaml:"tick_ms,omitempty"`

	// SaveDB is the SQLite save slot database.
	SaveDB string `yaml:"save_db,omitempty"`
}

// LoadGameConfig reads a game config file. Unknown fields are rejected and
// relative paths are resolved against the file's directory.
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}

	var cfg GameConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if cfg.Scripts != "" && !filepath.IsAbs(cfg.Scripts) {
		cfg.Scripts = filepath.Join(base, cfg.Scripts)
	}
	if cfg.SaveDB != "" && !filepath.IsAbs(cfg.SaveDB) {
		cfg.SaveDB = filepath.Join(base, cfg.SaveDB)
	}
	if cfg.TickMs == 0 {
		cfg.TickMs = DefaultTickMs
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	return &cfg, nil
}

func (c *GameConfig) validate() error {
	if c.Scripts == "" {
		return fmt.Errorf("scripts is required")
	}
	if c.Start != "" {
		if _, err := ir.ParseLocation(c.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	if c.Menu != "" && len(c.Menu) != 2 {
		return fmt.Errorf("menu must be a world and room letter pair, got %q", c.Menu)
	}
	if c.Slots < 0 {
		return fmt.Errorf("slots must be non-negative")
	}
	if c.TickMs < 0 {
		return fmt.Errorf("tick_ms must be non-negative")
	}
	if _, err := sidefx.ParseCollisionPolicy(c.CollisionPolicy); err != nil {
		return fmt.Errorf("collision_policy: %w", err)
	}
	return nil
}

// EngineOptions translates the config into engine options.
func (c *GameConfig) EngineOptions(logger *slog.Logger) ([]engine.Option, error) {
	policy, err := sidefx.ParseCollisionPolicy(c.CollisionPolicy)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithCollisionPolicy(policy),
		engine.WithFullScan(c.FullScan),
	}
	if c.Start != "" {
		start, err := ir.ParseLocation(c.Start)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithStartLocation(start))
	}
	if c.Menu != "" {
		opts = append(opts, engine.WithMenuLocation(c.Menu[0], c.Menu[1]))
	}
	if c.Slots > 0 {
		opts = append(opts, engine.WithStateSlots(c.Slots))
	}
	return opts, nil
}
