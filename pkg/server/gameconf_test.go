package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConf(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadGameConfDefaults(t *testing.T) {
	gc, err := LoadGameConf("")
	if err != nil {
		t.Fatalf("LoadGameConf: %v", err)
	}
	if gc.ImmortalLevel != 31 || gc.ClanCreateLevel != 33 {
		t.Errorf("levels = %d/%d, want 31/33", gc.ImmortalLevel, gc.ClanCreateLevel)
	}
	if gc.ClanStore != ClanStoreFlatfile || gc.ClanFile != "clans" {
		t.Errorf("clan store = %q %q", gc.ClanStore, gc.ClanFile)
	}
}

func TestLoadGameConfYAML(t *testing.T) {
	path := writeConf(t, "game.yaml", `
mud_name: Crystal
port: 4444
immortal_level: 51
clan_create_level: 60
clan_store: bolt
bolt_path: game.bolt
staff:
  Wizard: 60
`)
	gc, err := LoadGameConf(path)
	if err != nil {
		t.Fatalf("LoadGameConf: %v", err)
	}
	if gc.MudName != "Crystal" || gc.Port != 4444 {
		t.Errorf("identity = %q:%d", gc.MudName, gc.Port)
	}
	cc := gc.ClanConfig()
	if cc.ImmortalLevel != 51 || cc.CreateLevel != 60 {
		t.Errorf("ClanConfig = %+v", cc)
	}
	if lvl, ok := gc.StaffLevel("wizard"); !ok || lvl != 60 {
		t.Errorf("StaffLevel(wizard) = %d, %v", lvl, ok)
	}
	if gc.StartRoom != "Temple Square" {
		t.Errorf("unset key lost its default: start_room = %q", gc.StartRoom)
	}
}

func TestLoadGameConfText(t *testing.T) {
	path := writeConf(t, "game.conf", `# comment
mud_name	Text Mud
clan_file	data/clans
sql_enabled	yes
sql_database	data/journal.sqlite
staff Wizard 40
bogus_directive 1
`)
	gc, err := LoadGameConf(path)
	if err != nil {
		t.Fatalf("LoadGameConf: %v", err)
	}
	if gc.MudName != "Text Mud" || gc.ClanFile != "data/clans" {
		t.Errorf("text conf = %+v", gc)
	}
	if !gc.SQLEnabled || gc.SQLDatabase != "data/journal.sqlite" {
		t.Errorf("sql = %v %q", gc.SQLEnabled, gc.SQLDatabase)
	}
	if lvl, ok := gc.StaffLevel("WIZARD"); !ok || lvl != 40 {
		t.Errorf("StaffLevel = %d, %v", lvl, ok)
	}
}

func TestLoadGameConfEnvOverride(t *testing.T) {
	path := writeConf(t, "game.yaml", "port: 4444\nclan_file: fromfile\n")
	t.Setenv("MUSH_PORT", "5555")
	t.Setenv("MUSH_CLAN_CREATE_LEVEL", "40")

	gc, err := LoadGameConf(path)
	if err != nil {
		t.Fatalf("LoadGameConf: %v", err)
	}
	if gc.Port != 5555 {
		t.Errorf("port = %d, want env value 5555", gc.Port)
	}
	if gc.ClanCreateLevel != 40 {
		t.Errorf("clan_create_level = %d, want 40", gc.ClanCreateLevel)
	}
	if gc.ClanFile != "fromfile" {
		t.Errorf("clan_file = %q, file value should survive", gc.ClanFile)
	}
}

func TestLoadGameConfValidation(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"unknown store", "clan_store: postgres\n", "unknown clan_store"},
		{"bolt without path", "clan_store: bolt\n", "needs bolt_path"},
		{"flatfile without file", "clan_file: \"\"\n", "needs clan_file"},
		{"create below immortal", "immortal_level: 40\nclan_create_level: 35\n", "below immortal_level"},
		{"sql without database", "sql_enabled: true\nsql_database: \"\"\n", "needs sql_database"},
	}
	for _, tt := range tests {
		path := writeConf(t, "game.yaml", tt.content)
		_, err := LoadGameConf(path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadGameConfMissingFile(t *testing.T) {
	if _, err := LoadGameConf(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
