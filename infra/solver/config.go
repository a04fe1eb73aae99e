package solver

import (
	"errors"
	"fmt"
	"time"
)

// Config describes how the solver executable is launched.
type Config struct {
	// Command is the executable path or name looked up in PATH.
	Command string `json:"command"`
	// Args may contain the placeholders {dir}, {first}, {last}, {count},
	// {version} and {chunk}.
	Args []string          `json:"args"`
	Env  map[string]string `json:"env"`
	// MaxParallel bounds the number of concurrent solver processes.
	MaxParallel    int    `json:"max_parallel"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	WorkDir        string `json:"work_dir"`
	KeepWorkDirs   bool   `json:"keep_work_dirs"`
	// InputDir is copied into every scratch directory before execution.
	InputDir string `json:"input_dir"`
	// OutputFile receives the combined stdout and stderr of the process,
	// relative to the scratch directory.
	OutputFile string `json:"output_file"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxParallel == 0 {
		c.MaxParallel = 1
	}
	if c.OutputFile == "" {
		c.OutputFile = "solver.out"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Command == "" {
		return errors.New("solver command is required")
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("solver max_parallel must be positive, got %d", c.MaxParallel)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("solver timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the per-process timeout, zero meaning none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
