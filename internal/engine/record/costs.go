package record

import (
	"strings"

	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/snapshot"
)

// CostSet is the set of scoring categories an edit consumes. Scoring
// itself lives outside this package.
type CostSet uint8

const (
	CostCryptex CostSet = 1 << iota
	CostTape
	CostRoller
	CostFrame

	CostNone CostSet = 0
)

var costNames = []struct {
	cost CostSet
	name string
}{
	{CostCryptex, "cryptex"},
	{CostTape, "tape"},
	{CostRoller, "roller"},
	{CostFrame, "frame"},
}

// Has reports whether every category in c is in s.
func (s CostSet) Has(c CostSet) bool { return s&c == c }

// Names returns the category names in a fixed order.
func (s CostSet) Names() []string {
	var out []string
	for _, cn := range costNames {
		if s.Has(cn.cost) {
			out = append(out, cn.name)
		}
	}
	return out
}

func (s CostSet) String() string {
	return strings.Join(s.Names(), ",")
}

// Costs returns the categories r consumes against l. Annotations (notes,
// breakpoints, labels) and lock changes are free. Records naming absent
// ids cost nothing.
func Costs(l *model.Layer, r Record) CostSet {
	switch r := r.(type) {
	case CreateCryptex:
		return CostCryptex | contentCosts(r.Cryptex)
	case DestroyCryptex:
		c, ok := l.Cryptex(r.ID)
		if !ok {
			return CostNone
		}
		return CostCryptex | contentCosts(c.Snapshot())
	case MoveCryptex, RotateCryptex:
		return CostCryptex
	case CreateTape, DestroyTape, MoveTape, WriteTape, SetSequence:
		return CostTape
	case SetNote, SetBreakpoint:
		return CostNone
	case CreateRoller:
		return CostRoller | framesCost(r.Roller)
	case DestroyRoller:
		ro, ok := l.Roller(r.ID)
		if !ok {
			return CostNone
		}
		return CostRoller | framesCost(ro.Snapshot())
	case MoveRoller, SetRollerColor:
		return CostRoller
	case InsertFrame, RemoveFrame, SetFrameMode:
		return CostFrame
	case CreateLabel, DestroyLabel, MoveLabel, RenameLabel, SetLocks:
		return CostNone
	}
	return CostNone
}

// CostsOf returns the union of Costs over rs.
func CostsOf(l *model.Layer, rs []Record) CostSet {
	var s CostSet
	for _, r := range rs {
		s |= Costs(l, r)
	}
	return s
}

func contentCosts(c snapshot.Cryptex) CostSet {
	var s CostSet
	if len(c.Tapes) > 0 {
		s |= CostTape
	}
	for _, r := range c.Rollers {
		s |= CostRoller | framesCost(r)
	}
	return s
}

func framesCost(r snapshot.Roller) CostSet {
	if len(r.Frames) > 0 {
		return CostFrame
	}
	return CostNone
}
