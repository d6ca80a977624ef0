package atoms

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadPDBQT parses ATOM and HETATM records from a PDBQT stream. Other
// record types are skipped. Columns follow the PDB fixed-width layout with
// the AutoDock type in columns 78-79.
func ReadPDBQT(r io.Reader) ([]Atom, error) {
	var out []Atom
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !strings.HasPrefix(line, "ATOM  ") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		a, err := parseAtomLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pdbqt: %w", err)
	}
	return out, nil
}

// LoadPDBQT reads the receptor atoms from a PDBQT file.
func LoadPDBQT(path string) ([]Atom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open receptor: %w", err)
	}
	defer f.Close()

	out, err := ReadPDBQT(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func parseAtomLine(line string) (Atom, error) {
	if len(line) < 78 {
		return Atom{}, fmt.Errorf("atom record too short (%d columns)", len(line))
	}

	serial, err := strconv.Atoi(strings.TrimSpace(line[6:11]))
	if err != nil {
		return Atom{}, fmt.Errorf("bad serial: %w", err)
	}

	coord := func(from, to int, axis string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(line[from:to]), 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s coordinate: %w", axis, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("non-finite %s coordinate %g", axis, v)
		}
		return v, nil
	}
	x, err := coord(30, 38, "x")
	if err != nil {
		return Atom{}, err
	}
	y, err := coord(38, 46, "y")
	if err != nil {
		return Atom{}, err
	}
	z, err := coord(46, 54, "z")
	if err != nil {
		return Atom{}, err
	}

	end := min(len(line), 79)
	typeName := strings.TrimSpace(line[77:end])
	ad, ok := ADType(typeName)
	if !ok {
		return Atom{}, fmt.Errorf("unknown atom type %q", typeName)
	}

	a := NewAtom(ad, r3.Vec{X: x, Y: y, Z: z})
	a.Serial = serial
	a.Name = strings.TrimSpace(line[12:16])
	a.ResName = strings.TrimSpace(line[17:20])
	return a, nil
}
