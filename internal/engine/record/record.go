package record

import (
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// Kind names a record variant. Kinds are the persisted discriminator.
type Kind string

const (
	KindCreateCryptex  Kind = "cryptex.create"
	KindDestroyCryptex Kind = "cryptex.destroy"
	KindMoveCryptex    Kind = "cryptex.move"
	KindRotateCryptex  Kind = "cryptex.rotate"

	KindCreateTape    Kind = "tape.create"
	KindDestroyTape   Kind = "tape.destroy"
	KindMoveTape      Kind = "tape.move"
	KindWriteTape     Kind = "tape.write"
	KindSetNote       Kind = "tape.note"
	KindSetBreakpoint Kind = "tape.breakpoint"
	KindSetSequence   Kind = "tape.sequence"

	KindCreateRoller   Kind = "roller.create"
	KindDestroyRoller  Kind = "roller.destroy"
	KindMoveRoller     Kind = "roller.move"
	KindSetRollerColor Kind = "roller.color"

	KindInsertFrame  Kind = "frame.insert"
	KindRemoveFrame  Kind = "frame.remove"
	KindSetFrameMode Kind = "frame.mode"

	KindCreateLabel  Kind = "label.create"
	KindDestroyLabel Kind = "label.destroy"
	KindMoveLabel    Kind = "label.move"
	KindRenameLabel  Kind = "label.rename"

	KindSetLocks Kind = "locks.set"
)

// Record is an invertible edit. The set of implementations is closed.
type Record interface {
	Kind() Kind
	record()
}

// Cryptex records.

// CreateCryptex inserts a cryptex subtree at Index in the layer.
type CreateCryptex struct {
	Index   int              `json:"index" yaml:"index"`
	Cryptex snapshot.Cryptex `json:"cryptex" yaml:"cryptex"`
}

// DestroyCryptex removes a cryptex and everything it owns.
type DestroyCryptex struct {
	ID entity.ID `json:"id" yaml:"id"`
}

// MoveCryptex reorders a cryptex and sets its position.
type MoveCryptex struct {
	ID       entity.ID   `json:"id" yaml:"id"`
	Index    int         `json:"index" yaml:"index"`
	Position entity.Vec2 `json:"position" yaml:"position"`
}

// RotateCryptex sets the rotation flag.
type RotateCryptex struct {
	ID      entity.ID `json:"id" yaml:"id"`
	Rotated bool      `json:"rotated" yaml:"rotated"`
}

// Tape records.

// CreateTape inserts a tape into a cryptex at Index.
type CreateTape struct {
	Cryptex entity.ID     `json:"cryptex" yaml:"cryptex"`
	Index   int           `json:"index" yaml:"index"`
	Tape    snapshot.Tape `json:"tape" yaml:"tape"`
}

// DestroyTape removes a tape.
type DestroyTape struct {
	ID entity.ID `json:"id" yaml:"id"`
}

// MoveTape reorders a tape within its cryptex and sets its shift.
type MoveTape struct {
	ID    entity.ID `json:"id" yaml:"id"`
	Index int       `json:"index" yaml:"index"`
	Shift int       `json:"shift" yaml:"shift"`
}

// WriteTape overwrites the value at Index. A nil Value erases the
// overwrite.
type WriteTape struct {
	Tape  entity.ID `json:"tape" yaml:"tape"`
	Index int       `json:"index" yaml:"index"`
	Value *string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// SetNote attaches a note at Index. A nil Text removes it.
type SetNote struct {
	Tape  entity.ID `json:"tape" yaml:"tape"`
	Index int       `json:"index" yaml:"index"`
	Text  *string   `json:"text,omitempty" yaml:"text,omitempty"`
}

// SetBreakpoint sets or clears a breakpoint.
type SetBreakpoint struct {
	Tape  entity.ID `json:"tape" yaml:"tape"`
	Index int       `json:"index" yaml:"index"`
	Set   bool      `json:"set" yaml:"set"`
}

// SetSequence replaces a tape's sequence kind and pattern.
type SetSequence struct {
	Tape     entity.ID           `json:"tape" yaml:"tape"`
	Sequence entity.SequenceKind `json:"sequence" yaml:"sequence"`
	Pattern  []string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Roller records.

// CreateRoller inserts a roller into a cryptex at Index.
type CreateRoller struct {
	Cryptex entity.ID       `json:"cryptex" yaml:"cryptex"`
	Index   int             `json:"index" yaml:"index"`
	Roller  snapshot.Roller `json:"roller" yaml:"roller"`
}

// DestroyRoller removes a roller.
type DestroyRoller struct {
	ID entity.ID `json:"id" yaml:"id"`
}

// MoveRoller reorders a roller and sets its move and hop offsets.
type MoveRoller struct {
	ID    entity.ID `json:"id" yaml:"id"`
	Index int       `json:"index" yaml:"index"`
	Move  int       `json:"move" yaml:"move"`
	Hop   int       `json:"hop" yaml:"hop"`
}

// SetRollerColor recolors a roller.
type SetRollerColor struct {
	ID    entity.ID `json:"id" yaml:"id"`
	Color string    `json:"color" yaml:"color"`
}

// Frame records. Frames are addressed by roller and position.

// InsertFrame inserts a frame at Index.
type InsertFrame struct {
	Roller entity.ID      `json:"roller" yaml:"roller"`
	Index  int            `json:"index" yaml:"index"`
	Frame  snapshot.Frame `json:"frame" yaml:"frame"`
}

// RemoveFrame removes the frame at Index.
type RemoveFrame struct {
	Roller entity.ID `json:"roller" yaml:"roller"`
	Index  int       `json:"index" yaml:"index"`
}

// SetFrameMode changes the mode of the frame at Index.
type SetFrameMode struct {
	Roller entity.ID        `json:"roller" yaml:"roller"`
	Index  int              `json:"index" yaml:"index"`
	Mode   entity.FrameMode `json:"mode" yaml:"mode"`
}

// Label records.

// CreateLabel adds a label to a cryptex.
type CreateLabel struct {
	Cryptex entity.ID      `json:"cryptex" yaml:"cryptex"`
	Label   snapshot.Label `json:"label" yaml:"label"`
}

// DestroyLabel removes a label.
type DestroyLabel struct {
	ID entity.ID `json:"id" yaml:"id"`
}

// MoveLabel relocates a label.
type MoveLabel struct {
	ID     entity.ID `json:"id" yaml:"id"`
	Offset int       `json:"offset" yaml:"offset"`
}

// RenameLabel changes a label's name in place.
type RenameLabel struct {
	ID   entity.ID `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
}

// SetLocks replaces the lock flags of an entity. Layers that enforce locks
// refuse it.
type SetLocks struct {
	Target entity.Ref   `json:"target" yaml:"target"`
	Locks  entity.Locks `json:"locks" yaml:"locks"`
}

func (CreateCryptex) Kind() Kind  { return KindCreateCryptex }
func (DestroyCryptex) Kind() Kind { return KindDestroyCryptex }
func (MoveCryptex) Kind() Kind    { return KindMoveCryptex }
func (RotateCryptex) Kind() Kind  { return KindRotateCryptex }
func (CreateTape) Kind() Kind     { return KindCreateTape }
func (DestroyTape) Kind() Kind    { return KindDestroyTape }
func (MoveTape) Kind() Kind       { return KindMoveTape }
func (WriteTape) Kind() Kind      { return KindWriteTape }
func (SetNote) Kind() Kind        { return KindSetNote }
func (SetBreakpoint) Kind() Kind  { return KindSetBreakpoint }
func (SetSequence) Kind() Kind    { return KindSetSequence }
func (CreateRoller) Kind() Kind   { return KindCreateRoller }
func (DestroyRoller) Kind() Kind  { return KindDestroyRoller }
func (MoveRoller) Kind() Kind     { return KindMoveRoller }
func (SetRollerColor) Kind() Kind { return KindSetRollerColor }
func (InsertFrame) Kind() Kind    { return KindInsertFrame }
func (RemoveFrame) Kind() Kind    { return KindRemoveFrame }
func (SetFrameMode) Kind() Kind   { return KindSetFrameMode }
func (CreateLabel) Kind() Kind    { return KindCreateLabel }
func (DestroyLabel) Kind() Kind   { return KindDestroyLabel }
func (MoveLabel) Kind() Kind      { return KindMoveLabel }
func (RenameLabel) Kind() Kind    { return KindRenameLabel }
func (SetLocks) Kind() Kind       { return KindSetLocks }

func (CreateCryptex) record()  {}
func (DestroyCryptex) record() {}
func (MoveCryptex) record()    {}
func (RotateCryptex) record()  {}
func (CreateTape) record()     {}
func (DestroyTape) record()    {}
func (MoveTape) record()       {}
func (WriteTape) record()      {}
func (SetNote) record()        {}
func (SetBreakpoint) record()  {}
func (SetSequence) record()    {}
func (CreateRoller) record()   {}
func (DestroyRoller) record()  {}
func (MoveRoller) record()     {}
func (SetRollerColor) record() {}
func (InsertFrame) record()    {}
func (RemoveFrame) record()    {}
func (SetFrameMode) record()   {}
func (CreateLabel) record()    {}
func (DestroyLabel) record()   {}
func (MoveLabel) record()      {}
func (RenameLabel) record()    {}
func (SetLocks) record()       {}

// Value returns a pointer to s, for WriteTape and SetNote.
func Value(s string) *string { return &s }

