package atoms

import (
	"fmt"
	"strings"
)

// Typing selects which categorisation of an atom is used for eligibility.
type Typing int

const (
	TypingEL Typing = iota // element
	TypingAD               // AutoDock 4
	TypingXS               // X-Score
)

// Category counts per typing scheme. A category value at or above the count
// marks an atom with no valid category under that scheme.
const (
	NumEL = 11
	NumAD = 20
	NumXS = 17
)

// Element categories.
const (
	ElH = iota
	ElC
	ElN
	ElO
	ElS
	ElP
	ElF
	ElCl
	ElBr
	ElI
	ElMet
)

// X-Score categories.
const (
	XsCH = iota
	XsCP
	XsNP
	XsND
	XsNA
	XsNDA
	XsOP
	XsOD
	XsOA
	XsODA
	XsSP
	XsPP
	XsFH
	XsClH
	XsBrH
	XsIH
	XsMetD
)

// adInfo describes one AutoDock 4 type. The slice index is the AD category.
type adInfo struct {
	name string
	el   int
	xs   int
}

// adTypes lists AD categories in their canonical order. Hydrogens carry
// NumXS because X-Score has no hydrogen category.
var adTypes = [NumAD]adInfo{
	{"C", ElC, XsCH},
	{"A", ElC, XsCH},
	{"N", ElN, XsNP},
	{"O", ElO, XsOA},
	{"P", ElP, XsPP},
	{"S", ElS, XsSP},
	{"H", ElH, NumXS},
	{"F", ElF, XsFH},
	{"I", ElI, XsIH},
	{"NA", ElN, XsNA},
	{"OA", ElO, XsOA},
	{"SA", ElS, XsSP},
	{"HD", ElH, NumXS},
	{"Mg", ElMet, XsMetD},
	{"Mn", ElMet, XsMetD},
	{"Zn", ElMet, XsMetD},
	{"Ca", ElMet, XsMetD},
	{"Fe", ElMet, XsMetD},
	{"Cl", ElCl, XsClH},
	{"Br", ElBr, XsBrH},
}

// NumTypes returns the number of valid categories for t.
func NumTypes(t Typing) int {
	switch t {
	case TypingEL:
		return NumEL
	case TypingAD:
		return NumAD
	case TypingXS:
		return NumXS
	}
	panic(fmt.Sprintf("atoms: unknown typing %d", int(t)))
}

// String returns the short lowercase name used in config files.
func (t Typing) String() string {
	switch t {
	case TypingEL:
		return "el"
	case TypingAD:
		return "ad"
	case TypingXS:
		return "xs"
	}
	return fmt.Sprintf("typing(%d)", int(t))
}

// ParseTyping maps a config name (el, ad, xs) to a Typing.
func ParseTyping(s string) (Typing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "el":
		return TypingEL, nil
	case "ad":
		return TypingAD, nil
	case "xs":
		return TypingXS, nil
	}
	return 0, fmt.Errorf("unknown atom typing %q (want el, ad or xs)", s)
}

// ADType returns the AD category for a PDBQT type name such as "OA".
func ADType(name string) (int, bool) {
	for i, info := range adTypes {
		if info.name == name {
			return i, true
		}
	}
	return NumAD, false
}

// ADName returns the PDBQT type name of an AD category.
func ADName(ad int) string {
	if ad < 0 || ad >= NumAD {
		return "?"
	}
	return adTypes[ad].name
}
