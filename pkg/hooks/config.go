// Package hooks runs user commands around g3d's one-shot exports.
//
// Commands come from .g3d/hooks.yaml in the project directory:
//
//	hooks:
//	  pre-export:
//	    - name: fetch
//	      command: ./scripts/pull-ledger.sh
//	  post-export:
//	    - command: rsync $G3D_EXPORT_PATHS backup:/g3d/
//	      timeout: 2m
//	      on_error: fail
//
// Pre-export hooks run before the first file is written and cancel the run
// when they fail. Post-export hooks run once every file is on disk.
package hooks

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is the point of the export run a hook is attached to.
type Phase string

const (
	PreExport  Phase = "pre-export"
	PostExport Phase = "post-export"
)

// Failure policy for a hook.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// ConfigPath is the hooks file relative to the project directory.
var ConfigPath = filepath.Join(".g3d", "hooks.yaml")

// Hook is one shell command.
type Hook struct {
	Name    string
	Command string // run with sh -c
	Timeout time.Duration
	Env     map[string]string // values may reference $G3D_* variables
	OnError string
}

// Config holds the hooks of both phases, in file order.
type Config struct {
	PreExport  []Hook
	PostExport []Hook
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.PreExport)+len(c.PostExport) == 0
}

// ExportContext describes the run to the hook commands.
type ExportContext struct {
	Dataset   string
	Paths     []string
	Formats   []string
	NodeCount int
	EdgeCount int
	Date      time.Time // session start date, omitted when zero
	Timestamp time.Time
}

// ToEnv renders the context as G3D_* variables. Paths are joined with the
// OS list separator so a hook can split them like $PATH.
func (c ExportContext) ToEnv() []string {
	env := []string{
		"G3D_DATASET=" + c.Dataset,
		"G3D_EXPORT_PATHS=" + strings.Join(c.Paths, string(os.PathListSeparator)),
		"G3D_EXPORT_FORMATS=" + strings.Join(c.Formats, ","),
		"G3D_NODE_COUNT=" + strconv.Itoa(c.NodeCount),
		"G3D_EDGE_COUNT=" + strconv.Itoa(c.EdgeCount),
		"G3D_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
	if !c.Date.IsZero() {
		env = append(env, "G3D_DATE="+c.Date.Format("2006-01-02"))
	}
	return env
}

type hooksFile struct {
	Hooks struct {
		PreExport  []rawHook `yaml:"pre-export"`
		PostExport []rawHook `yaml:"post-export"`
	} `yaml:"hooks"`
}

type rawHook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Timeout string            `yaml:"timeout"`
	Env     map[string]string `yaml:"env"`
	OnError string            `yaml:"on_error"`
}

// Load reads the hooks file under projectDir. A missing file is an empty
// config. Hooks without a command are dropped and reported as warnings.
func Load(projectDir string) (*Config, []string, error) {
	path := filepath.Join(projectDir, ConfigPath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading hooks config: %w", err)
	}

	var f hooksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var warnings []string
	cfg := &Config{}
	for _, ph := range []struct {
		phase Phase
		raw   []rawHook
		dst   *[]Hook
	}{
		{PreExport, f.Hooks.PreExport, &cfg.PreExport},
		{PostExport, f.Hooks.PostExport, &cfg.PostExport},
	} {
		for i, r := range ph.raw {
			h, warn, err := r.normalize(ph.phase, i+1)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			if warn != "" {
				warnings = append(warnings, warn)
				continue
			}
			*ph.dst = append(*ph.dst, h)
		}
	}
	return cfg, warnings, nil
}

// normalize fills in the defaults. Only pre-export hooks fail the run unless
// on_error says otherwise.
func (r rawHook) normalize(phase Phase, n int) (Hook, string, error) {
	if strings.TrimSpace(r.Command) == "" {
		return Hook{}, fmt.Sprintf("%s hook %d has no command; skipped", phase, n), nil
	}
	h := Hook{Name: r.Name, Command: r.Command, Env: r.Env, Timeout: DefaultTimeout}
	if h.Name == "" {
		h.Name = fmt.Sprintf("%s-%d", phase, n)
	}
	if r.Timeout != "" {
		d, err := parseTimeout(r.Timeout)
		if err != nil {
			return Hook{}, "", fmt.Errorf("hook %q: %w", h.Name, err)
		}
		h.Timeout = d
	}
	switch r.OnError {
	case OnErrorFail, OnErrorContinue:
		h.OnError = r.OnError
	case "":
		h.OnError = OnErrorContinue
		if phase == PreExport {
			h.OnError = OnErrorFail
		}
	default:
		return Hook{}, "", fmt.Errorf("hook %q: on_error must be %q or %q, got %q", h.Name, OnErrorFail, OnErrorContinue, r.OnError)
	}
	return h, "", nil
}

// parseTimeout accepts a Go duration ("90s", "2m") or plain seconds ("1.5").
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("timeout %q must be positive", s)
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || !(secs > 0) || math.IsInf(secs, 1) {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
