// Command dockgrid builds a neighbour grid over a receptor and reports its
// occupancy, answers point queries, and optionally persists and plots it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/dockgrid/internal/atoms"
	"github.com/banshee-data/dockgrid/internal/config"
	"github.com/banshee-data/dockgrid/internal/grid"
	"github.com/banshee-data/dockgrid/internal/gridstore"
	"github.com/banshee-data/dockgrid/internal/monitor"
	"github.com/banshee-data/dockgrid/internal/version"
	"github.com/joho/godotenv"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// envDB names the environment variable holding the default -db path.
	envDB = "DOCKGRID_DB"
	// maxCells bounds the grid the CLI will allocate.
	maxCells = 1 << 24
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dockgrid: %v\n", err)
		os.Exit(1)
	}
}

// vecFlag parses "x,y,z".
type vecFlag struct {
	v   r3.Vec
	set bool
}

func (f *vecFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return formatVec(f.v)
}

func (f *vecFlag) Set(s string) error {
	v, err := parseVec(s)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

// vecList collects a repeatable "x,y,z" flag.
type vecList []r3.Vec

func (l *vecList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = formatVec(v)
	}
	return strings.Join(parts, " ")
}

func (l *vecList) Set(s string) error {
	v, err := parseVec(s)
	if err != nil {
		return err
	}
	*l = append(*l, v)
	return nil
}

func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("bad component %q: %w", p, err)
		}
		xyz[i] = f
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("%g,%g,%g", v.X, v.Y, v.Z)
}

// loadEnv reads .env if present so DOCKGRID_DB can be set per project.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	if err := loadEnv(); err != nil {
		return err
	}

	fset := flag.NewFlagSet("dockgrid", flag.ContinueOnError)
	fset.SetOutput(stderr)
	var (
		receptor    = fset.String("receptor", "", "Receptor PDBQT file (required)")
		configPath  = fset.String("config", "", "Grid tuning JSON (defaults apply when omitted)")
		cutoff      = fset.Float64("cutoff", -1, "Cutoff in Å; overrides the config when >= 0")
		dbPath      = fset.String("db", os.Getenv(envDB), "SQLite file to persist the grid snapshot to")
		plotPath    = fset.String("plot", "", "Write an occupancy histogram image to this path")
		htmlPath    = fset.String("html", "", "Write an occupancy HTML report to this path")
		diag        = fset.Bool("diag", false, "Log build diagnostics to stderr")
		showVersion = fset.Bool("version", false, "Print version and exit")
		center      vecFlag
		size        vecFlag
		queries     vecList
	)
	fset.Var(&center, "center", "Box centre x,y,z (requires -size)")
	fset.Var(&size, "size", "Box size x,y,z (requires -center)")
	fset.Var(&queries, "query", "Query point x,y,z (repeatable)")
	if err := fset.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "dockgrid %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return nil
	}
	if *receptor == "" {
		return errors.New("-receptor is required")
	}
	if center.set != size.set {
		return errors.New("-center and -size must be given together")
	}

	if *diag {
		grid.SetLogWriters(stderr, stderr, nil)
	} else {
		grid.SetLogWriters(stderr, nil, nil)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *cutoff >= 0 {
		cfg.SetCutoff(*cutoff)
	}
	typing, err := atoms.ParseTyping(cfg.GetAtomTyping())
	if err != nil {
		return err
	}

	recAtoms, err := atoms.LoadPDBQT(*receptor)
	if err != nil {
		return err
	}
	model := atoms.NewModel(recAtoms, typing)

	var box r3.Box
	if center.set {
		if !(size.v.X >= 0 && size.v.Y >= 0 && size.v.Z >= 0) {
			return fmt.Errorf("-size must be non-negative, got %s", formatVec(size.v))
		}
		half := r3.Scale(0.5, size.v)
		box = r3.Box{Min: r3.Sub(center.v, half), Max: r3.Add(center.v, half)}
	} else {
		box = atoms.BoundingBox(recAtoms, cfg.GetBoxPadding())
	}

	dims, err := gridDims(box, cfg)
	if err != nil {
		return err
	}
	g := grid.New(model, dims, cfg.GetCutoffSqr(), grid.OptionsFromTuning(cfg))

	fmt.Fprintf(stdout, "receptor: %s (%d atoms, typing %s)\n", *receptor, model.Len(), typing)
	fmt.Fprintf(stdout, "grid: %s\n", g.Dims())
	fmt.Fprintf(stdout, "cutoff: %g Å, relevant atoms: %d\n", cfg.GetCutoff(), len(g.Relevant()))
	fmt.Fprintf(stdout, "average possibilities: %.3f\n", g.AverageNumPossibilities())
	fmt.Fprintf(stdout, "occupancy: %s\n", g.Occupancy())

	for _, q := range queries {
		if err := printQuery(stdout, g, model, q); err != nil {
			return err
		}
	}

	if *dbPath != "" {
		store, err := gridstore.Open(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := g.Persist(store, *receptor, typing.String())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "snapshot: %s\n", id)
	}

	if *plotPath != "" {
		if err := monitor.PlotOccupancyHistogram(g, *plotPath); err != nil {
			return err
		}
	}

	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		if err := monitor.RenderOccupancyPage(f, g, "dockgrid: "+*receptor); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	return nil
}

// gridDims derives and checks the grid resolution for box so that bad user
// input is reported as an error instead of reaching grid.New.
func gridDims(box r3.Box, cfg *config.TuningConfig) (grid.Dims, error) {
	size := cfg.GetPreferredCellSize()
	cells := 1.0
	for axis, r := range [3][2]float64{
		{box.Min.X, box.Max.X},
		{box.Min.Y, box.Max.Y},
		{box.Min.Z, box.Max.Z},
	} {
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return grid.Dims{}, fmt.Errorf("grid box axis %d is not finite: [%g, %g]", axis, r[0], r[1])
			}
		}
		cells *= math.Max(1, math.Floor((r[1]-r[0])/size))
	}
	if cells > maxCells {
		return grid.Dims{}, fmt.Errorf("grid box needs %.3g cells, limit is %d", cells, maxCells)
	}

	dims := grid.DimsFromTuning(box, cfg)
	if err := dims.Validate(); err != nil {
		return grid.Dims{}, fmt.Errorf("invalid grid box: %w", err)
	}
	return dims, nil
}

// printQuery prints the candidates for q and how many are truly within the
// cutoff. Points outside the grid box are reported as errors here rather
// than handed to the grid, which treats them as a contract violation.
func printQuery(w io.Writer, g *grid.Grid, m *atoms.Model, q r3.Vec) error {
	if !inBox(g, q) {
		return fmt.Errorf("query %s is outside the grid box", formatVec(q))
	}
	cands := g.Possibilities(q)
	within := 0
	for _, i := range cands {
		if r3.Norm2(r3.Sub(m.Coords(i), q)) < g.CutoffSqr() {
			within++
		}
	}
	x, y, z := g.CellOf(q)
	fmt.Fprintf(w, "query %s: cell (%d,%d,%d), %d candidates, %d within cutoff\n",
		formatVec(q), x, y, z, len(cands), within)
	return nil
}

func inBox(g *grid.Grid, q r3.Vec) bool {
	b := g.Dims().Box()
	eps := g.Epsilon()
	return q.X+eps >= b.Min.X && q.X <= b.Max.X+eps &&
		q.Y+eps >= b.Min.Y && q.Y <= b.Max.Y+eps &&
		q.Z+eps >= b.Min.Z && q.Z <= b.Max.Z+eps
}
