package grid

import (
	"github.com/banshee-data/dockgrid/internal/config"
	"gonum.org/v1/gonum/spatial/r3"
)

// OptionsFromTuning builds Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig) *Options {
	return &Options{
		Epsilon: cfg.GetEpsilon(),
		Workers: cfg.GetWorkers(),
	}
}

// DimsFromTuning picks a resolution for b using the configured cell size.
func DimsFromTuning(b r3.Box, cfg *config.TuningConfig) Dims {
	return DimsForBoxWithCellSize(b, cfg.GetPreferredCellSize())
}
