package record

import (
	"math/rand"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/snapshot"
)

func gen64() gopter.Gen { return gen.Int64() }

// randomRecord returns a random record that is legal against l, or nil if
// the layer offers nothing to edit.
func randomRecord(rng *rand.Rand, l *model.Layer) Record {
	cryptexes := l.Cryptexes()
	if len(cryptexes) == 0 {
		return CreateCryptex{Index: 0, Cryptex: snapshot.Cryptex{ID: entity.NewID()}}
	}
	c := cryptexes[rng.Intn(len(cryptexes))]
	tapes := c.Tapes()
	rollers := c.Rollers()
	labels := c.Labels()

	for range 20 {
		switch rng.Intn(20) {
		case 0:
			return CreateCryptex{Index: rng.Intn(len(cryptexes) + 1), Cryptex: snapshot.Cryptex{
				ID:    entity.NewID(),
				Tapes: []snapshot.Tape{{ID: entity.NewID(), Sequence: entity.SequenceCustom}},
			}}
		case 1:
			return DestroyCryptex{ID: c.ID()}
		case 2:
			return MoveCryptex{ID: c.ID(), Index: rng.Intn(len(cryptexes)), Position: entity.Vec2{X: rng.Intn(9)}}
		case 3:
			return RotateCryptex{ID: c.ID(), Rotated: !c.Rotated()}
		case 4:
			return CreateTape{Cryptex: c.ID(), Index: rng.Intn(len(tapes) + 1), Tape: snapshot.Tape{
				ID: entity.NewID(), Sequence: entity.SequencePattern, Pattern: []string{"a", "b"},
				Writes: []snapshot.Write{{Index: 1, Value: "z"}},
			}}
		case 5:
			if len(tapes) > 0 {
				return DestroyTape{ID: tapes[rng.Intn(len(tapes))].ID()}
			}
		case 6:
			if len(tapes) > 0 {
				return MoveTape{ID: tapes[rng.Intn(len(tapes))].ID(), Index: rng.Intn(len(tapes)), Shift: rng.Intn(5) - 2}
			}
		case 7:
			if len(tapes) > 0 {
				var v *string
				if rng.Intn(3) > 0 {
					v = Value("w")
				}
				return WriteTape{Tape: tapes[rng.Intn(len(tapes))].ID(), Index: rng.Intn(8) - 2, Value: v}
			}
		case 8:
			if len(tapes) > 0 {
				var text *string
				if rng.Intn(2) == 0 {
					text = Value("n")
				}
				return SetNote{Tape: tapes[rng.Intn(len(tapes))].ID(), Index: rng.Intn(8), Text: text}
			}
		case 9:
			if len(tapes) > 0 {
				return SetBreakpoint{Tape: tapes[rng.Intn(len(tapes))].ID(), Index: rng.Intn(8), Set: rng.Intn(2) == 0}
			}
		case 10:
			if len(tapes) > 0 {
				return SetSequence{Tape: tapes[rng.Intn(len(tapes))].ID(), Sequence: entity.SequenceCustom, Pattern: []string{"q"}}
			}
		case 11:
			return CreateRoller{Cryptex: c.ID(), Index: rng.Intn(len(rollers) + 1), Roller: snapshot.Roller{
				ID: entity.NewID(), Kind: entity.RollerProgrammable, Color: "black",
				Frames: []snapshot.Frame{{Mode: entity.FrameRead}},
			}}
		case 12:
			if len(rollers) > 0 {
				return DestroyRoller{ID: rollers[rng.Intn(len(rollers))].ID()}
			}
		case 13:
			if len(rollers) > 0 {
				return MoveRoller{ID: rollers[rng.Intn(len(rollers))].ID(), Index: rng.Intn(len(rollers)), Move: rng.Intn(4), Hop: rng.Intn(2)}
			}
		case 14:
			if len(rollers) > 0 {
				return SetRollerColor{ID: rollers[rng.Intn(len(rollers))].ID(), Color: "white"}
			}
		case 15:
			if len(rollers) > 0 {
				r := rollers[rng.Intn(len(rollers))]
				return InsertFrame{Roller: r.ID(), Index: rng.Intn(r.Len() + 1), Frame: snapshot.Frame{Mode: entity.FrameReadWrite}}
			}
		case 16:
			for _, r := range rollers {
				if r.Len() > 0 {
					return RemoveFrame{Roller: r.ID(), Index: rng.Intn(r.Len())}
				}
			}
		case 17:
			if off := 100 + rng.Intn(50); !hasLabel(c, off) {
				return CreateLabel{Cryptex: c.ID(), Label: snapshot.Label{ID: entity.NewID(), Offset: off, Name: "new"}}
			}
		case 18:
			if len(labels) > 0 {
				lb := labels[rng.Intn(len(labels))]
				if off := 200 + rng.Intn(50); !hasLabel(c, off) {
					return MoveLabel{ID: lb.ID(), Offset: off}
				}
			}
		case 19:
			if len(tapes) > 0 {
				return SetLocks{Target: entity.TapeRef(tapes[0].ID()), Locks: entity.Locks(rng.Intn(8))}
			}
			if len(labels) > 0 {
				return DestroyLabel{ID: labels[0].ID()}
			}
		}
	}
	return renameOrNil(labels)
}

// renameOrNil is the fallback when no other edit was drawn.
func renameOrNil(labels []*model.Label) Record {
	if len(labels) == 0 {
		return nil
	}
	return RenameLabel{ID: labels[0].ID(), Name: labels[0].Name() + "!"}
}

func hasLabel(c *model.Cryptex, offset int) bool {
	_, ok := c.LabelAt(offset)
	return ok
}
