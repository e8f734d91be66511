package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGameConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "scripts: scenes\n")

	cfg, err := LoadGameConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "scenes"), cfg.Scripts)
	assert.Equal(t, DefaultTickMs, cfg.TickMs)
	assert.Empty(t, cfg.SaveDB)
	assert.False(t, cfg.FullScan)
}

func TestLoadGameConfig_AllFields(t *testing.T) {
	path := writeConfig(t, `scripts: /games/riven/scenes
start: "gary:120"
menu: gj
slots: 21000
collision_policy: keep_existing
full_scan: true
tick_ms: 33
save_db: saves/riven.db
`)

	cfg, err := LoadGameConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &GameConfig{
		Scripts:         "/games/riven/scenes",
		Start:           "gary:120",
		Menu:            "gj",
		Slots:           21000,
		CollisionPolicy: "keep_existing",
		FullScan:        true,
		TickMs:          33,
		SaveDB:          filepath.Join(filepath.Dir(path), "saves", "riven.db"),
	}, cfg)
}

func TestLoadGameConfig_MissingFile(t *testing.T) {
	_, err := LoadGameConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read game config")
}

func TestLoadGameConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, "scripts: scenes\nscrpits: typo\n")

	_, err := LoadGameConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadGameConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no scripts", "tick_ms: 16\n", "scripts is required"},
		{"bad start", "scripts: s\nstart: x\n", "start:"},
		{"bad menu", "scripts: s\nmenu: gjx\n", "menu must be a world and room letter pair"},
		{"negative slots", "scripts: s\nslots: -1\n", "slots must be non-negative"},
		{"negative tick", "scripts: s\ntick_ms: -5\n", "tick_ms must be non-negative"},
		{"bad policy", "scripts: s\ncollision_policy: merge\n", "collision_policy:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGameConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid game config")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGameConfig_EngineOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	minimal := &GameConfig{Scripts: "s"}
	opts, err := minimal.EngineOptions(logger)
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	full := &GameConfig{Scripts: "s", Start: "gbaa", Menu: "gj", Slots: 100, CollisionPolicy: "stop_replace"}
	opts, err = full.EngineOptions(logger)
	require.NoError(t, err)
	assert.Len(t, opts, 6)

	bad := &GameConfig{Scripts: "s", CollisionPolicy: "merge"}
	_, err = bad.EngineOptions(logger)
	assert.Error(t, err)
}
