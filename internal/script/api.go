package script

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/cryptex/internal/engine"
	"github.com/dshills/cryptex/internal/engine/history"
	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// ModuleName is the global table scripts use.
const ModuleName = "cryptex"

// api binds an engine to Lua functions.
type api struct {
	eng *engine.Engine
}

// Bind installs the cryptex module on s, driving eng.
func Bind(s *State, eng *engine.Engine) {
	a := &api{eng: eng}
	funcs := map[string]lua.LGFunction{
		"batch":      a.batch,
		"undo":       a.undo,
		"redo":       a.redo,
		"revert":     a.revert,
		"can_undo":   a.canUndo,
		"can_redo":   a.canRedo,
		"undo_count": a.undoCount,
		"checkpoint": a.checkpoint,
		"undo_to":    a.undoTo,
		"id":         a.id,
		"tapes":      a.tapes,
		"rollers":    a.rollers,
		"cryptexes":  a.cryptexes,
	}
	for name, build := range builders {
		funcs[name] = a.apply(build)
	}
	s.RegisterModule(ModuleName, funcs)
}

// builders turn Lua arguments into records. Each editing function applies
// exactly one record.
var builders = map[string]func(L *lua.LState) record.Record{
	"add_cryptex": func(L *lua.LState) record.Record {
		return record.CreateCryptex{
			Index: L.OptInt(4, -1),
			Cryptex: snapshot.Cryptex{
				ID:       checkID(L, 1),
				Position: entity.Vec2{X: L.CheckInt(2), Y: L.CheckInt(3)},
			},
		}
	},
	"remove_cryptex": func(L *lua.LState) record.Record {
		return record.DestroyCryptex{ID: checkID(L, 1)}
	},
	"move_cryptex": func(L *lua.LState) record.Record {
		return record.MoveCryptex{
			ID:       checkID(L, 1),
			Index:    L.CheckInt(2),
			Position: entity.Vec2{X: L.CheckInt(3), Y: L.CheckInt(4)},
		}
	},
	"rotate": func(L *lua.LState) record.Record {
		return record.RotateCryptex{ID: checkID(L, 1), Rotated: L.ToBool(2)}
	},
	"add_tape": func(L *lua.LState) record.Record {
		t := snapshot.Tape{ID: checkID(L, 3), Sequence: entity.SequenceCustom}
		if given(L, 4) {
			t.Sequence = entity.SequencePattern
			t.Pattern = checkStrings(L, 4)
		}
		return record.CreateTape{Cryptex: checkID(L, 1), Index: L.CheckInt(2), Tape: t}
	},
	"remove_tape": func(L *lua.LState) record.Record {
		return record.DestroyTape{ID: checkID(L, 1)}
	},
	"move_tape": func(L *lua.LState) record.Record {
		return record.MoveTape{ID: checkID(L, 1), Index: L.CheckInt(2), Shift: L.OptInt(3, 0)}
	},
	"write": func(L *lua.LState) record.Record {
		return record.WriteTape{Tape: checkID(L, 1), Index: L.CheckInt(2), Value: optString(L, 3)}
	},
	"note": func(L *lua.LState) record.Record {
		return record.SetNote{Tape: checkID(L, 1), Index: L.CheckInt(2), Text: optString(L, 3)}
	},
	"breakpoint": func(L *lua.LState) record.Record {
		return record.SetBreakpoint{Tape: checkID(L, 1), Index: L.CheckInt(2), Set: L.ToBool(3)}
	},
	"sequence": func(L *lua.LState) record.Record {
		r := record.SetSequence{Tape: checkID(L, 1), Sequence: entity.SequenceKind(L.CheckString(2))}
		if given(L, 3) {
			r.Pattern = checkStrings(L, 3)
		}
		return r
	},
	"add_roller": func(L *lua.LState) record.Record {
		r := snapshot.Roller{
			ID:    checkID(L, 3),
			Kind:  entity.RollerKind(L.CheckString(4)),
			Color: L.CheckString(5),
		}
		if given(L, 6) {
			for _, mode := range checkStrings(L, 6) {
				r.Frames = append(r.Frames, snapshot.Frame{Mode: entity.FrameMode(mode)})
			}
		}
		return record.CreateRoller{Cryptex: checkID(L, 1), Index: L.CheckInt(2), Roller: r}
	},
	"remove_roller": func(L *lua.LState) record.Record {
		return record.DestroyRoller{ID: checkID(L, 1)}
	},
	"move_roller": func(L *lua.LState) record.Record {
		return record.MoveRoller{ID: checkID(L, 1), Index: L.CheckInt(2), Move: L.OptInt(3, 0), Hop: L.OptInt(4, 0)}
	},
	"color": func(L *lua.LState) record.Record {
		return record.SetRollerColor{ID: checkID(L, 1), Color: L.CheckString(2)}
	},
	"insert_frame": func(L *lua.LState) record.Record {
		return record.InsertFrame{
			Roller: checkID(L, 1),
			Index:  L.CheckInt(2),
			Frame:  snapshot.Frame{Mode: entity.FrameMode(L.OptString(3, string(entity.FrameRead)))},
		}
	},
	"remove_frame": func(L *lua.LState) record.Record {
		return record.RemoveFrame{Roller: checkID(L, 1), Index: L.CheckInt(2)}
	},
	"frame_mode": func(L *lua.LState) record.Record {
		return record.SetFrameMode{Roller: checkID(L, 1), Index: L.CheckInt(2), Mode: entity.FrameMode(L.CheckString(3))}
	},
	"add_label": func(L *lua.LState) record.Record {
		return record.CreateLabel{
			Cryptex: checkID(L, 1),
			Label:   snapshot.Label{ID: checkID(L, 2), Offset: L.CheckInt(3), Name: L.CheckString(4)},
		}
	},
	"remove_label": func(L *lua.LState) record.Record {
		return record.DestroyLabel{ID: checkID(L, 1)}
	},
	"move_label": func(L *lua.LState) record.Record {
		return record.MoveLabel{ID: checkID(L, 1), Offset: L.CheckInt(2)}
	},
	"rename_label": func(L *lua.LState) record.Record {
		return record.RenameLabel{ID: checkID(L, 1), Name: L.CheckString(2)}
	},
	"lock": func(L *lua.LState) record.Record {
		ref := entity.Ref{Kind: entity.Kind(L.CheckString(1)), ID: checkID(L, 2)}
		locks, err := entity.ParseLocks(L.OptString(3, ""))
		if err != nil {
			L.ArgError(3, err.Error())
		}
		if ref.Kind == entity.KindFrame {
			ref.Frame = L.CheckInt(4)
		}
		return record.SetLocks{Target: ref, Locks: locks}
	},
}

func (a *api) apply(build func(*lua.LState) record.Record) lua.LGFunction {
	return func(L *lua.LState) int {
		r := build(L)
		if c, ok := r.(record.CreateCryptex); ok && c.Index < 0 {
			c.Index = a.eng.Layer().Len()
			r = c
		}
		if color, taken := a.colorTaken(r); taken {
			L.RaiseError("%s: color %q already used by another roller of this kind", r.Kind(), color)
		}
		if err := a.eng.ApplyModificationRecord(r); err != nil {
			L.RaiseError("%s: %s", r.Kind(), err)
		}
		return 0
	}
}

// colorTaken reports whether r would give a roller a color another roller
// of the same kind in its cryptex already has.
func (a *api) colorTaken(r record.Record) (string, bool) {
	l := a.eng.Layer()
	switch r := r.(type) {
	case record.CreateRoller:
		return r.Roller.Color, l.ColorInUse(r.Cryptex, r.Roller.Kind, r.Roller.Color, r.Roller.ID)
	case record.SetRollerColor:
		ro, ok := l.Roller(r.ID)
		if !ok {
			return "", false
		}
		return r.Color, l.ColorInUse(ro.Cryptex().ID(), ro.Kind(), r.Color, r.ID)
	}
	return "", false
}

// batch(name, fn) runs fn as one undo step. If fn raises, everything it
// applied is rolled back and the error is re-raised.
func (a *api) batch(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	err := a.eng.Batch(name, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
	if err != nil {
		L.RaiseError("batch %s: %s", name, err)
	}
	return 0
}

func (a *api) undo(L *lua.LState) int {
	if err := a.eng.UndoModification(); err != nil {
		L.RaiseError("undo: %s", err)
	}
	return 0
}

func (a *api) redo(L *lua.LState) int {
	if err := a.eng.RedoModification(); err != nil {
		L.RaiseError("redo: %s", err)
	}
	return 0
}

func (a *api) revert(L *lua.LState) int {
	if err := a.eng.RevertToBase(); err != nil {
		L.RaiseError("revert: %s", err)
	}
	return 0
}

func (a *api) canUndo(L *lua.LState) int {
	L.Push(lua.LBool(a.eng.CanUndo()))
	return 1
}

func (a *api) canRedo(L *lua.LState) int {
	L.Push(lua.LBool(a.eng.CanRedo()))
	return 1
}

func (a *api) undoCount(L *lua.LState) int {
	L.Push(lua.LNumber(a.eng.UndoCount()))
	return 1
}

// checkpoint() returns a handle for undo_to.
func (a *api) checkpoint(L *lua.LState) int {
	ud := L.NewUserData()
	ud.Value = a.eng.Checkpoint()
	L.Push(ud)
	return 1
}

// undo_to(cp) undoes every step taken since cp.
func (a *api) undoTo(L *lua.LState) int {
	cp, ok := L.CheckUserData(1).Value.(history.Checkpoint)
	if !ok {
		L.ArgError(1, "checkpoint expected")
	}
	if err := a.eng.UndoToCheckpoint(cp); err != nil {
		L.RaiseError("undo_to: %s", err)
	}
	return 0
}

// id(n) returns the canonical string for an integer id.
func (a *api) id(L *lua.LState) int {
	L.Push(lua.LString(checkID(L, 1).String()))
	return 1
}

// cryptexes() lists the edit layer's cryptex ids in order.
func (a *api) cryptexes(L *lua.LState) int {
	t := L.NewTable()
	for _, c := range a.eng.Layer().Cryptexes() {
		t.Append(lua.LString(c.ID().String()))
	}
	L.Push(t)
	return 1
}

// tapes(cryptex) lists a cryptex's tape ids in order.
func (a *api) tapes(L *lua.LState) int {
	c, ok := a.eng.Layer().Cryptex(checkID(L, 1))
	if !ok {
		L.ArgError(1, "no such cryptex")
	}
	t := L.NewTable()
	for _, tape := range c.Tapes() {
		t.Append(lua.LString(tape.ID().String()))
	}
	L.Push(t)
	return 1
}

// rollers(cryptex) lists a cryptex's roller ids in order.
func (a *api) rollers(L *lua.LState) int {
	c, ok := a.eng.Layer().Cryptex(checkID(L, 1))
	if !ok {
		L.ArgError(1, "no such cryptex")
	}
	t := L.NewTable()
	for _, r := range c.Rollers() {
		t.Append(lua.LString(r.ID().String()))
	}
	L.Push(t)
	return 1
}

// checkID reads an id argument: a non-negative integer or an id string.
func checkID(L *lua.LState, n int) entity.ID {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		f := float64(v)
		if f < 0 || f != math.Trunc(f) {
			L.ArgError(n, "id must be a non-negative integer")
		}
		return entity.IDFromInt(uint64(f))
	case lua.LString:
		id, err := entity.ParseID(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return id
	}
	L.ArgError(n, "id expected")
	return entity.Nil
}

// given reports whether argument n is present and not nil.
func given(L *lua.LState, n int) bool {
	return L.Get(n) != lua.LNil
}

// optString reads an optional string; nil means absent.
func optString(L *lua.LState, n int) *string {
	if !given(L, n) {
		return nil
	}
	return record.Value(L.CheckString(n))
}

// checkStrings reads an array of strings.
func checkStrings(L *lua.LState, n int) []string {
	t := L.CheckTable(n)
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			L.ArgError(n, "expected an array of strings")
		}
		out = append(out, string(s))
	}
	return out
}
