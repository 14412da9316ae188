package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/debug"
)

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs configured hooks with the export context in their env.
type Executor struct {
	config  *Config
	context ExportContext
	results []Result
}

// NewExecutor creates an executor for config.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// RunPreExport runs pre-export hooks in order. The first failing hook with
// on_error "fail" stops the phase and its error cancels the exports.
func (e *Executor) RunPreExport() error {
	for _, hook := range e.config.PreExport {
		if res := e.run(hook, PreExport); !res.Success && hook.OnError == OnErrorFail {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook. The exports are already on
// disk, so a failure never skips later hooks; the first failure of an
// on_error "fail" hook is returned at the end.
func (e *Executor) RunPostExport() error {
	var firstErr error
	for _, hook := range e.config.PostExport {
		res := e.run(hook, PostExport)
		if !res.Success && hook.OnError == OnErrorFail && firstErr == nil {
			firstErr = fmt.Errorf("post-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return firstErr
}

// Results returns the runs so far, in order.
func (e *Executor) Results() []Result {
	return append([]Result(nil), e.results...)
}

// environ is the process env plus the export variables, then the hook's own
// variables expanded against both.
func (e *Executor) environ(hook Hook) []string {
	env := append(os.Environ(), e.context.ToEnv()...)
	lookup := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			lookup[k] = v
		}
	}
	for k, v := range hook.Env {
		env = append(env, k+"="+os.Expand(v, func(key string) string { return lookup[key] }))
	}
	return env
}

func (e *Executor) run(hook Hook, phase Phase) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = e.environ(hook)
	// Background children may hold the pipes open after a timeout.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     hook,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", timeout)
		}
		res.Error = err
	}
	debug.Log("hook %s/%s: success=%v in %s", phase, hook.Name, res.Success, res.Duration.Round(time.Millisecond))

	e.results = append(e.results, res)
	return res
}

// Summary describes the runs, with stderr of failed hooks truncated.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var sb strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&sb, "  %s hook %q failed: %v\n", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "    stderr: %s\n", truncate(r.Stderr, 200))
		}
	}
	return fmt.Sprintf("Hooks: %d succeeded, %d failed\n", ok, failed) + sb.String()
}

// RunHooks loads hooks for projectDir and returns an executor, or nil when
// noHooks is set or nothing is configured.
func RunHooks(projectDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	if projectDir == "" {
		projectDir = "."
	}
	cfg, warnings, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		debug.Log("hooks: %s", w)
	}
	if cfg.Empty() {
		return nil, nil
	}
	return NewExecutor(cfg, ctx), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
