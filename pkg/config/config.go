// Package config handles loading and saving g3d configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/g3d/config.yaml
//   - Data:    ~/.local/share/g3d/ (exported timelines and snapshots)
//
// Graph data itself is resolved through named datasets, relative to the data
// dir (the working directory unless configured).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvDataset = "G3D_CONFIG"
	EnvDataDir = "G3D_DATA_DIR"
)

// DefaultDatasetName is the fallback for unknown dataset names.
const DefaultDatasetName = "default"

// ErrNoDataset is returned when neither the requested dataset nor the
// default one is defined.
var ErrNoDataset = errors.New("no dataset configured")

// Dataset kinds.
const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
	KindNeo4j  = "neo4j"
)

// Dataset describes where a graph comes from.
type Dataset struct {
	Kind string `yaml:"kind,omitempty"` // json (default), sqlite, neo4j

	// json: node and edge document locations (paths or http(s) URLs)
	Nodes string `yaml:"nodes,omitempty"`
	Edges string `yaml:"edges,omitempty"`

	// sqlite: database file
	Path string `yaml:"path,omitempty"`

	// neo4j: bolt/neo4j URI and credentials
	URI      string `yaml:"uri,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// EffectiveKind returns the kind, defaulting to json.
func (d Dataset) EffectiveKind() string {
	if k := strings.ToLower(strings.TrimSpace(d.Kind)); k != "" {
		return k
	}
	return KindJSON
}

// PlaybackConfig holds date machine settings.
type PlaybackConfig struct {
	DayDuration   time.Duration `yaml:"day_duration,omitempty"`   // wall time per day at 1x
	FrameInterval time.Duration `yaml:"frame_interval,omitempty"` // scheduler tick
	Speed         int           `yaml:"speed,omitempty"`          // 1 or 2
	StartDate     string        `yaml:"start_date,omitempty"`     // YYYY-MM-DD, empty = today
	Autoplay      bool          `yaml:"autoplay,omitempty"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Labels     bool   `yaml:"labels,omitempty"`
	Theme      string `yaml:"theme,omitempty"` // auto, dark, light
	DetailPane bool   `yaml:"detail_pane,omitempty"`
	Watch      bool   `yaml:"watch,omitempty"` // reload when data files change
}

// ServerConfig holds the scene API settings.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	CORS bool   `yaml:"cors,omitempty"`
}

// Config is the top-level configuration for g3d.
type Config struct {
	DataDir  string             `yaml:"data_dir,omitempty"`
	Datasets map[string]Dataset `yaml:"datasets,omitempty"`
	Playback PlaybackConfig     `yaml:"playback,omitempty"`
	UI       UIConfig           `yaml:"ui,omitempty"`
	Server   ServerConfig       `yaml:"server,omitempty"`
}

// builtinDatasets returns the datasets every install knows about.
func builtinDatasets() map[string]Dataset {
	return map[string]Dataset{
		"default": {Kind: KindJSON, Nodes: "nodes.json", Edges: "edges.json"},
		"example": {Kind: KindJSON, Nodes: "nodes.example.json", Edges: "edges.example.json"},
		"private": {Kind: KindJSON, Nodes: "private.nodes.json", Edges: "private.edges.json"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Datasets: builtinDatasets(),
		Playback: PlaybackConfig{
			DayDuration:   time.Second,
			FrameInterval: 16 * time.Millisecond,
			Speed:         1,
		},
		UI: UIConfig{
			Theme:      "auto",
			DetailPane: true,
			Watch:      true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// configDir returns the XDG config directory for g3d.
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "g3d")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "g3d")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return applyEnv(DefaultConfig()), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	// Unmarshalling over the defaults keeps unset fields, and yaml.v3 adds
	// to the existing datasets map instead of replacing it.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Datasets = normalizeNames(cfg.Datasets)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return applyEnv(cfg), nil
}

func normalizeNames(in map[string]Dataset) map[string]Dataset {
	out := make(map[string]Dataset, len(in))
	for name, ds := range in {
		out[strings.ToLower(strings.TrimSpace(name))] = ds
	}
	return out
}

func applyEnv(cfg Config) Config {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = expandHome(dir)
	}
	return cfg
}

// Validate checks values a config file can get wrong.
func (c Config) Validate() error {
	if c.Playback.Speed != 1 && c.Playback.Speed != 2 {
		return fmt.Errorf("playback.speed must be 1 or 2, got %d", c.Playback.Speed)
	}
	if c.Playback.StartDate != "" {
		if _, err := ParseDate(c.Playback.StartDate); err != nil {
			return fmt.Errorf("playback.start_date: %w", err)
		}
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be auto, dark or light, got %q", c.UI.Theme)
	}
	for name, ds := range c.Datasets {
		switch ds.EffectiveKind() {
		case KindJSON:
			if ds.Nodes == "" || ds.Edges == "" {
				return fmt.Errorf("dataset %q: json datasets need nodes and edges", name)
			}
		case KindSQLite:
			if ds.Path == "" {
				return fmt.Errorf("dataset %q: sqlite datasets need a path", name)
			}
		case KindNeo4j:
			if ds.URI == "" {
				return fmt.Errorf("dataset %q: neo4j datasets need a uri", name)
			}
		default:
			return fmt.Errorf("dataset %q: unknown kind %q", name, ds.Kind)
		}
	}
	return nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SelectedName picks the dataset name: an explicit flag value wins, then
// G3D_CONFIG, then the default.
func SelectedName(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataset)); v != "" {
		return v
	}
	return DefaultDatasetName
}

// Resolve returns the dataset for name. Unknown names silently fall back to
// the default dataset; the returned name is the one actually used.
func (c Config) Resolve(name string) (string, Dataset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if ds, ok := c.Datasets[key]; ok {
		return key, c.rooted(ds), nil
	}
	if ds, ok := c.Datasets[DefaultDatasetName]; ok {
		return DefaultDatasetName, c.rooted(ds), nil
	}
	return "", Dataset{}, ErrNoDataset
}

// rooted resolves relative file locations against the data dir.
func (c Config) rooted(ds Dataset) Dataset {
	if c.DataDir == "" {
		return ds
	}
	ds.Nodes = c.root(ds.Nodes)
	ds.Edges = c.root(ds.Edges)
	ds.Path = c.root(ds.Path)
	return ds
}

func (c Config) root(loc string) string {
	if loc == "" || filepath.IsAbs(loc) || strings.Contains(loc, "://") {
		return loc
	}
	return filepath.Join(c.DataDir, loc)
}

// DatasetNames returns the configured names, sorted.
func (c Config) DatasetNames() []string {
	names := make([]string, 0, len(c.Datasets))
	for name := range c.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartDate parses Playback.StartDate; ok is false when unset.
func (c Config) StartDate() (t time.Time, ok bool) {
	if c.Playback.StartDate == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(c.Playback.StartDate)
	return t, err == nil
}

// ParseDate parses YYYY-MM-DD in local time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
