package entity

import "fmt"

// Vec2 is a position on the workspace grid.
type Vec2 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns the component-wise sum.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// SequenceKind tags how a Tape's underlying contents are produced.
type SequenceKind string

const (
	// SequencePattern repeats a fixed pattern.
	SequencePattern SequenceKind = "pattern"
	// SequenceCustom holds explicit contents.
	SequenceCustom SequenceKind = "custom"
)

// Valid reports whether k is a known sequence kind.
func (k SequenceKind) Valid() bool {
	return k == SequencePattern || k == SequenceCustom
}

// RollerKind distinguishes fixed-instruction and user-programmable rollers.
type RollerKind string

const (
	RollerFixed        RollerKind = "fixed"
	RollerProgrammable RollerKind = "programmable"
)

// Valid reports whether k is a known roller kind.
func (k RollerKind) Valid() bool {
	return k == RollerFixed || k == RollerProgrammable
}

// FrameMode is the access mode of a single Frame.
type FrameMode string

const (
	FrameRead      FrameMode = "read"
	FrameReadWrite FrameMode = "readwrite"
)

// Valid reports whether m is a known frame mode.
func (m FrameMode) Valid() bool {
	return m == FrameRead || m == FrameReadWrite
}

// Kind names an entity type.
type Kind string

const (
	KindCryptex Kind = "cryptex"
	KindTape    Kind = "tape"
	KindRoller  Kind = "roller"
	KindFrame   Kind = "frame"
	KindLabel   Kind = "label"
)

// Ref addresses a lockable entity. Frames are addressed by their roller's
// ID and a position.
type Ref struct {
	Kind  Kind `json:"kind" yaml:"kind"`
	ID    ID   `json:"id" yaml:"id"`
	Frame int  `json:"frame,omitempty" yaml:"frame,omitempty"`
}

func (r Ref) String() string {
	if r.Kind == KindFrame {
		return fmt.Sprintf("frame %s[%d]", r.ID, r.Frame)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}

// CryptexRef returns a Ref to a cryptex.
func CryptexRef(id ID) Ref { return Ref{Kind: KindCryptex, ID: id} }

// TapeRef returns a Ref to a tape.
func TapeRef(id ID) Ref { return Ref{Kind: KindTape, ID: id} }

// RollerRef returns a Ref to a roller.
func RollerRef(id ID) Ref { return Ref{Kind: KindRoller, ID: id} }

// FrameRef returns a Ref to the frame at index within a roller.
func FrameRef(roller ID, index int) Ref {
	return Ref{Kind: KindFrame, ID: roller, Frame: index}
}
