package atoms

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom is a single receptor atom.
type Atom struct {
	Serial  int
	Name    string
	ResName string
	Coords  r3.Vec

	AD, EL, XS int
}

// NewAtom builds an atom from its AD category, deriving EL and XS.
func NewAtom(ad int, coords r3.Vec) Atom {
	a := Atom{Coords: coords, AD: ad, EL: NumEL, XS: NumXS}
	if ad >= 0 && ad < NumAD {
		a.EL = adTypes[ad].el
		a.XS = adTypes[ad].xs
	}
	return a
}

// Get returns the atom's category under t.
func (a *Atom) Get(t Typing) int {
	switch t {
	case TypingEL:
		return a.EL
	case TypingAD:
		return a.AD
	case TypingXS:
		return a.XS
	}
	return math.MaxInt
}

// IsHydrogen reports whether the atom is a hydrogen of any AD flavour.
func (a *Atom) IsHydrogen() bool {
	return a.EL == ElH
}

// Model is the receptor: the atoms offered to the grid and the typing
// scheme that decides which of them are eligible.
type Model struct {
	GridAtoms []Atom
	Typing    Typing
}

// NewModel returns a Model over atoms using typing t.
func NewModel(atoms []Atom, t Typing) *Model {
	return &Model{GridAtoms: atoms, Typing: t}
}

// Len returns the number of grid atoms.
func (m *Model) Len() int { return len(m.GridAtoms) }

// Coords returns the coordinates of atom i.
func (m *Model) Coords(i int) r3.Vec { return m.GridAtoms[i].Coords }

// Type returns the category of atom i under the model's typing.
func (m *Model) Type(i int) int { return m.GridAtoms[i].Get(m.Typing) }

// NumTypes returns the eligibility threshold for the model's typing.
func (m *Model) NumTypes() int { return NumTypes(m.Typing) }

// BoundingBox returns the smallest box containing every atom, grown by pad
// on every side. An empty slice yields a box of side 2*pad at the origin.
func BoundingBox(atoms []Atom, pad float64) r3.Box {
	if len(atoms) == 0 {
		return r3.Box{
			Min: r3.Vec{X: -pad, Y: -pad, Z: -pad},
			Max: r3.Vec{X: pad, Y: pad, Z: pad},
		}
	}

	lo, hi := atoms[0].Coords, atoms[0].Coords
	for _, a := range atoms[1:] {
		c := a.Coords
		lo.X, hi.X = math.Min(lo.X, c.X), math.Max(hi.X, c.X)
		lo.Y, hi.Y = math.Min(lo.Y, c.Y), math.Max(hi.Y, c.Y)
		lo.Z, hi.Z = math.Min(lo.Z, c.Z), math.Max(hi.Z, c.Z)
	}

	p := r3.Vec{X: pad, Y: pad, Z: pad}
	return r3.Box{Min: r3.Sub(lo, p), Max: r3.Add(hi, p)}
}
