// Package config loads Terminator's runtime configuration: defaults, then an
// optional YAML file, then environment variables (spec.md §6), layered in
// that precedence order — the same default→file→env layering as the
// teacher's internal/config/loader.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BridgeConfig configures the Extension Bridge (spec.md §4.E).
type BridgeConfig struct {
	BindAddr          string        `yaml:"bind_addr"`
	Port              int           `yaml:"port"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	EvalTimeout       time.Duration `yaml:"eval_timeout"`
	ClientWaitTimeout time.Duration `yaml:"client_wait_timeout"`
	LegacyClientAge   time.Duration `yaml:"legacy_client_age"`
	PortRecoveryDelay time.Duration `yaml:"port_recovery_delay"`
	MaxAncestryHops   int           `yaml:"max_ancestry_hops"`
}

// WorkflowConfig configures the Workflow Host (spec.md §4.F).
type WorkflowConfig struct {
	RuntimeBinary  string `yaml:"runtime_binary"`  // e.g. "bun" or "node"
	ExecutionMode  string `yaml:"execution_mode"`  // direct|local-copy
	ParentPollSecs int    `yaml:"parent_poll_secs"`
}

// LoggerConfig configures the Execution Logger (spec.md §4.G).
type LoggerConfig struct {
	Disabled      bool   `yaml:"disabled"`
	RootDir       string `yaml:"root_dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// TreeConfig configures the tree builder's budgets (spec.md §4.A).
type TreeConfig struct {
	PropertyMode       string        `yaml:"property_mode"` // fast|complete|smart
	YieldEvery         int           `yaml:"yield_every"`
	PerOperationBudget time.Duration `yaml:"per_operation_budget"`
	MaxDepth           int           `yaml:"max_depth"`
}

// SelectorConfig configures default Selector Engine / Locator timeouts.
type SelectorConfig struct {
	DefaultTimeout    time.Duration `yaml:"default_timeout"`
	ChainStepTimeout  time.Duration `yaml:"chain_step_timeout"`
	DefaultSearchDepth int          `yaml:"default_search_depth"`
}

// Config is the root configuration object.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tree     TreeConfig     `yaml:"tree"`
	Selector SelectorConfig `yaml:"selector"`
}

// Default returns the built-in defaults, matching spec.md's stated defaults
// (50ms child-enumeration timeout, 50-element yield interval, 5s selector
// timeout, depth 50, 7-day retention, port 17373, …).
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			BindAddr:          "127.0.0.1",
			Port:              17373,
			HandshakeTimeout:  5 * time.Second,
			EvalTimeout:       10 * time.Second,
			ClientWaitTimeout: 10 * time.Second,
			LegacyClientAge:   500 * time.Millisecond,
			PortRecoveryDelay: 1 * time.Second,
			MaxAncestryHops:   10,
		},
		Workflow: WorkflowConfig{
			RuntimeBinary:  "bun",
			ExecutionMode:  "direct",
			ParentPollSecs: 1,
		},
		Logger: LoggerConfig{
			Disabled:      false,
			RootDir:       "",
			RetentionDays: 7,
		},
		Tree: TreeConfig{
			PropertyMode:       "smart",
			YieldEvery:         50,
			PerOperationBudget: 50 * time.Millisecond,
			MaxDepth:           50,
		},
		Selector: SelectorConfig{
			DefaultTimeout:     5 * time.Second,
			ChainStepTimeout:   1 * time.Second,
			DefaultSearchDepth: 50,
		},
	}
}

// Load builds a Config starting from Default(), overlaying a YAML file at
// path (if it exists) and then environment variables. path may be empty, in
// which case only defaults and environment are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, uerr)
			}
		case os.IsNotExist(err):
			// absent file is not an error; defaults stand.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays the environment variables documented in spec.md §6.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TERMINATOR_DISABLE_EXECUTION_LOGS"); v != "" {
		cfg.Logger.Disabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MCP_EXECUTION_MODE"); v == "local-copy" {
		cfg.Workflow.ExecutionMode = "local-copy"
	}
	if v := os.Getenv("TERMINATOR_BRIDGE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bridge.Port = n
		}
	}
	if v := os.Getenv("TERMINATOR_LOG_ROOT"); v != "" {
		cfg.Logger.RootDir = v
	}
	if v := os.Getenv("TERMINATOR_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Logger.RetentionDays = n
		}
	}
}
