package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrScript wraps Lua compile and runtime errors.
	ErrScript = errors.New("script failed")

	// ErrTimeout is returned when a script outlives its deadline.
	ErrTimeout = errors.New("script timed out")

	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("lua state is closed")
)

// DefaultTimeout bounds a script run when the caller sets no deadline.
const DefaultTimeout = 10 * time.Second

// State is a sandboxed Lua interpreter. Like the gopher-lua state it wraps
// it must be used from one goroutine at a time.
type State struct {
	L       *lua.LState
	timeout time.Duration
	output  io.Writer
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) { s.timeout = d }
}

// WithOutput sends print output to w.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) { s.output = w }
}

// NewState creates a sandboxed state.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultTimeout, output: io.Discard}
	for _, opt := range opts {
		opt(s)
	}
	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	s.openSafeLibraries()
	s.installPrint()
	return s
}

// openSafeLibraries opens base, table, string and math only.
func (s *State) openSafeLibraries() {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		s.L.Push(s.L.NewFunction(lib.open))
		s.L.Push(lua.LString(lib.name))
		s.L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}
}

func (s *State) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(s.output, strings.Join(parts, "\t"))
		return 0
	}))
}

// RegisterModule installs funcs as a global table.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

// DoString runs src. name identifies the chunk in error messages.
func (s *State) DoString(ctx context.Context, name, src string) error {
	if s.closed {
		return ErrStateClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := s.doWithRecovery(func() error {
		fn, err := s.L.Load(strings.NewReader(src), name)
		if err != nil {
			return err
		}
		s.L.Push(fn)
		return s.L.PCall(0, lua.MultRet, nil)
	})
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, name, cerr)
	}
	return fmt.Errorf("%w: %w", ErrScript, err)
}

func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the interpreter.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
