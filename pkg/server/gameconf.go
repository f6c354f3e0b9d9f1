package server

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/goclans/pkg/clan"
)

// Clan store kinds.
const (
	ClanStoreFlatfile = "flatfile"
	ClanStoreBolt     = "bolt"
)

// GameConf holds game-level configuration parameters.
// Supports both YAML (.yaml/.yml) and plain "key value" text (.conf) formats.
// MUSH_* environment variables override values from the file.
type GameConf struct {
	// --- Identity ---
	MudName string `yaml:"mud_name" env:"MUSH_MUD_NAME"`
	Port    int    `yaml:"port" env:"MUSH_PORT"`

	// --- Connections ---
	IdleTimeout int `yaml:"idle_timeout" env:"MUSH_IDLE_TIMEOUT"` // Seconds, 0 = never

	// --- Players ---
	StartRoom     string         `yaml:"start_room" env:"MUSH_START_ROOM"`
	StartingLevel int            `yaml:"starting_level" env:"MUSH_STARTING_LEVEL"`
	Staff         map[string]int `yaml:"staff" env:"MUSH_STAFF"` // Player name -> level, applied at login

	// --- Clans ---
	ImmortalLevel   int    `yaml:"immortal_level" env:"MUSH_IMMORTAL_LEVEL"`       // Staff threshold; staff can't join clans
	ClanCreateLevel int    `yaml:"clan_create_level" env:"MUSH_CLAN_CREATE_LEVEL"` // Needed for clan create/disband
	ClanFile        string `yaml:"clan_file" env:"MUSH_CLAN_FILE"`                 // Flatfile clan store
	ClanStore       string `yaml:"clan_store" env:"MUSH_CLAN_STORE"`               // "flatfile" or "bolt"

	// --- Storage ---
	BoltPath string `yaml:"bolt_path" env:"MUSH_BOLT_PATH"` // Player records (and clans with clan_store: bolt)

	// --- SQL journal ---
	SQLEnabled  bool   `yaml:"sql_enabled" env:"MUSH_SQL_ENABLED"`
	SQLDatabase string `yaml:"sql_database" env:"MUSH_SQL_DATABASE"` // Path to SQLite3 file
	SQLTimeout  int    `yaml:"sql_timeout" env:"MUSH_SQL_TIMEOUT"`   // Query timeout in seconds

	// --- Metrics ---
	MetricsAddr string `yaml:"metrics_addr" env:"MUSH_METRICS_ADDR"` // e.g. ":9100", empty = disabled
}

// DefaultGameConf returns a GameConf with stock defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		MudName:         "GoClans",
		Port:            4000,
		IdleTimeout:     3600,
		StartRoom:       "Temple Square",
		StartingLevel:   1,
		ImmortalLevel:   31,
		ClanCreateLevel: 33,
		ClanFile:        "clans",
		ClanStore:       ClanStoreFlatfile,
		SQLDatabase:     "journal.sqlite",
		SQLTimeout:      5,
	}
}

// LoadGameConf loads a game config file. Format is auto-detected by extension:
//   - .yaml / .yml  -> YAML format
//   - .conf / other -> "key value" text format
//
// An empty path yields the defaults. Environment overrides are applied last,
// then the result is validated.
func LoadGameConf(path string) (*GameConf, error) {
	gc := DefaultGameConf()
	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = gc.loadYAML(path)
		default:
			err = gc.loadText(path)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := env.Parse(gc); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := gc.Validate(); err != nil {
		return nil, err
	}
	return gc, nil
}

// --- YAML loader ---

func (gc *GameConf) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, gc); err != nil {
		return fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return nil
}

// --- Text loader ---

func (gc *GameConf) loadText(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, val := splitKeyVal(line)
		switch strings.ToLower(key) {
		case "mud_name":
			gc.MudName = val
		case "port":
			gc.Port = atoi(val, gc.Port)
		case "idle_timeout":
			gc.IdleTimeout = atoi(val, gc.IdleTimeout)
		case "start_room":
			gc.StartRoom = val
		case "starting_level":
			gc.StartingLevel = atoi(val, gc.StartingLevel)
		case "staff":
			// staff <name> <level>
			name, lvl := splitKeyVal(val)
			if gc.Staff == nil {
				gc.Staff = make(map[string]int)
			}
			gc.Staff[name] = atoi(lvl, gc.ImmortalLevel)
		case "immortal_level":
			gc.ImmortalLevel = atoi(val, gc.ImmortalLevel)
		case "clan_create_level":
			gc.ClanCreateLevel = atoi(val, gc.ClanCreateLevel)
		case "clan_file":
			gc.ClanFile = val
		case "clan_store":
			gc.ClanStore = strings.ToLower(val)
		case "bolt_path":
			gc.BoltPath = val
		case "sql_enabled":
			gc.SQLEnabled = parseBool(val)
		case "sql_database":
			gc.SQLDatabase = val
		case "sql_timeout":
			gc.SQLTimeout = atoi(val, gc.SQLTimeout)
		case "metrics_addr":
			gc.MetricsAddr = val
		default:
			log.Printf("gameconf: ignoring unknown directive %q", key)
		}
	}
	return scanner.Err()
}

// Validate reports settings that cannot work together.
func (gc *GameConf) Validate() error {
	switch gc.ClanStore {
	case ClanStoreFlatfile:
		if gc.ClanFile == "" {
			return fmt.Errorf("gameconf: clan_store %q needs clan_file", gc.ClanStore)
		}
	case ClanStoreBolt:
		if gc.BoltPath == "" {
			return fmt.Errorf("gameconf: clan_store %q needs bolt_path", gc.ClanStore)
		}
	default:
		return fmt.Errorf("gameconf: unknown clan_store %q", gc.ClanStore)
	}
	if gc.ClanCreateLevel < gc.ImmortalLevel {
		return fmt.Errorf("gameconf: clan_create_level %d is below immortal_level %d",
			gc.ClanCreateLevel, gc.ImmortalLevel)
	}
	if gc.SQLEnabled && gc.SQLDatabase == "" {
		return fmt.Errorf("gameconf: sql_enabled needs sql_database")
	}
	return nil
}

// ClanConfig returns the level thresholds for the clan system.
func (gc *GameConf) ClanConfig() clan.Config {
	return clan.Config{ImmortalLevel: gc.ImmortalLevel, CreateLevel: gc.ClanCreateLevel}
}

// StaffLevel returns the configured level for name, if any.
func (gc *GameConf) StaffLevel(name string) (int, bool) {
	for n, lvl := range gc.Staff {
		if strings.EqualFold(n, name) {
			return lvl, true
		}
	}
	return 0, false
}

// --- Helper functions ---

// splitKeyVal splits a line on the first whitespace (space or tab).
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func atoi(s string, fallback int) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "on"
}
