package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical grid defaults file.
const DefaultConfigPath = "config/grid.defaults.json"

// Fallbacks used by the Get* methods when a field is absent.
const (
	defaultEpsilon           = 1e-6
	defaultPreferredCellSize = 3.0
	defaultCutoff            = 8.0
	defaultWorkers           = 1
	defaultAtomTyping        = "xs"
	defaultBoxPadding        = 0.0
)

// TuningConfig holds the neighbour grid tuning parameters. Nil fields fall
// back to defaults, so partial files are safe.
type TuningConfig struct {
	// Query tolerance in Å for points just outside the grid box.
	Epsilon *float64 `json:"epsilon,omitempty"`
	// Target cell width in Å when the resolution is derived from the box.
	PreferredCellSize *float64 `json:"preferred_cell_size,omitempty"`
	// Interaction cutoff in Å. The grid consumes its square.
	Cutoff *float64 `json:"cutoff,omitempty"`
	// Goroutines used to fill cells.
	Workers *int `json:"workers,omitempty"`
	// Typing scheme deciding atom eligibility: "xs", "ad" or "el".
	AtomTyping *string `json:"atom_typing,omitempty"`
	// Padding in Å added around the receptor when no box is given.
	BoxPadding *float64 `json:"box_padding,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Epsilon:           ptrFloat64(defaultEpsilon),
		PreferredCellSize: ptrFloat64(defaultPreferredCellSize),
		Cutoff:            ptrFloat64(defaultCutoff),
		Workers:           ptrInt(defaultWorkers),
		AtomTyping:        ptrString(defaultAtomTyping),
		BoxPadding:        ptrFloat64(defaultBoxPadding),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/ or cmd/<name>/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Epsilon != nil && !(*c.Epsilon > 0) {
		return fmt.Errorf("epsilon must be positive, got %g", *c.Epsilon)
	}
	if c.PreferredCellSize != nil && !(*c.PreferredCellSize > 0) {
		return fmt.Errorf("preferred_cell_size must be positive, got %g", *c.PreferredCellSize)
	}
	if c.Cutoff != nil && !(*c.Cutoff >= 0) {
		return fmt.Errorf("cutoff must be non-negative, got %g", *c.Cutoff)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.AtomTyping != nil {
		switch strings.ToLower(*c.AtomTyping) {
		case "xs", "ad", "el":
		default:
			return fmt.Errorf("atom_typing must be one of xs, ad, el; got %q", *c.AtomTyping)
		}
	}
	if c.BoxPadding != nil && !(*c.BoxPadding >= 0) {
		return fmt.Errorf("box_padding must be non-negative, got %g", *c.BoxPadding)
	}
	return nil
}

// GetEpsilon returns the epsilon value or the default.
func (c *TuningConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return defaultEpsilon
	}
	return *c.Epsilon
}

// GetPreferredCellSize returns the preferred_cell_size value or the default.
func (c *TuningConfig) GetPreferredCellSize() float64 {
	if c.PreferredCellSize == nil {
		return defaultPreferredCellSize
	}
	return *c.PreferredCellSize
}

// GetCutoff returns the cutoff value or the default.
func (c *TuningConfig) GetCutoff() float64 {
	if c.Cutoff == nil {
		return defaultCutoff
	}
	return *c.Cutoff
}

// GetCutoffSqr returns the squared cutoff the grid is built with.
func (c *TuningConfig) GetCutoffSqr() float64 {
	v := c.GetCutoff()
	return v * v
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return defaultWorkers
	}
	return *c.Workers
}

// GetAtomTyping returns the atom_typing value or the default.
func (c *TuningConfig) GetAtomTyping() string {
	if c.AtomTyping == nil || *c.AtomTyping == "" {
		return defaultAtomTyping
	}
	return strings.ToLower(*c.AtomTyping)
}

// GetBoxPadding returns the box_padding value or the default.
func (c *TuningConfig) GetBoxPadding() float64 {
	if c.BoxPadding == nil {
		return defaultBoxPadding
	}
	return *c.BoxPadding
}

// SetCutoff overrides the cutoff, for command-line flags.
func (c *TuningConfig) SetCutoff(v float64) {
	c.Cutoff = ptrFloat64(v)
}
