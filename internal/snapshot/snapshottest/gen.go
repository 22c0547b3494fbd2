// Package snapshottest generates random, structurally valid snapshots and
// random edits of them for property tests.
package snapshottest

import (
	"fmt"
	"math/rand"

	"github.com/leanovate/gopter"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// Generator builds random snapshots from a seeded source. Ids are drawn
// from a counter so they never collide within one Generator.
type Generator struct {
	rng  *rand.Rand
	next uint64
}

// New returns a Generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), next: 1}
}

// FromRand wraps an existing source, e.g. gopter's GenParameters.Rng.
func FromRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, next: 1 + uint64(rng.Intn(1<<20))<<16}
}

func (g *Generator) id() entity.ID {
	id := entity.IDFromInt(g.next)
	g.next++
	return id
}

var colors = []string{"red", "green", "blue", "amber", "violet", "teal"}

// Layer returns a random layer with up to three cryptexes.
func (g *Generator) Layer() snapshot.Layer {
	var l snapshot.Layer
	for range g.rng.Intn(4) {
		l.Cryptexes = append(l.Cryptexes, g.Cryptex())
	}
	l.Normalize()
	return l
}

// Cryptex returns a random cryptex.
func (g *Generator) Cryptex() snapshot.Cryptex {
	c := snapshot.Cryptex{
		ID:       g.id(),
		Position: entity.Vec2{X: g.rng.Intn(40) - 20, Y: g.rng.Intn(40) - 20},
		Rotated:  g.rng.Intn(4) == 0,
		Locks:    g.locks(),
	}
	for range g.rng.Intn(4) {
		c.Tapes = append(c.Tapes, g.Tape())
	}
	for i := range g.rng.Intn(3) {
		c.Rollers = append(c.Rollers, g.Roller(colors[i]))
	}
	used := map[int]bool{}
	for range g.rng.Intn(3) {
		off := g.rng.Intn(10)
		if used[off] {
			continue
		}
		used[off] = true
		c.Labels = append(c.Labels, g.Label(off))
	}
	c.Normalize()
	return c
}

// Tape returns a random tape.
func (g *Generator) Tape() snapshot.Tape {
	t := snapshot.Tape{
		ID:       g.id(),
		Sequence: entity.SequencePattern,
		Shift:    g.rng.Intn(7) - 3,
		Locks:    g.locks(),
	}
	if g.rng.Intn(2) == 0 {
		t.Sequence = entity.SequenceCustom
	}
	for range g.rng.Intn(3) {
		t.Pattern = append(t.Pattern, g.value())
	}
	for _, i := range g.indices(4) {
		t.Writes = append(t.Writes, snapshot.Write{Index: i, Value: g.value()})
	}
	for _, i := range g.indices(2) {
		t.Notes = append(t.Notes, snapshot.Note{Index: i, Text: fmt.Sprintf("note %d", g.rng.Intn(100))})
	}
	t.Breakpoints = g.indices(2)
	t.Normalize()
	return t
}

// Roller returns a random roller with the given color.
func (g *Generator) Roller(color string) snapshot.Roller {
	r := snapshot.Roller{
		ID:    g.id(),
		Kind:  entity.RollerProgrammable,
		Color: color,
		Move:  g.rng.Intn(5),
		Hop:   g.rng.Intn(3),
		Locks: g.locks(),
	}
	if g.rng.Intn(3) == 0 {
		r.Kind = entity.RollerFixed
	}
	for range g.rng.Intn(5) {
		r.Frames = append(r.Frames, g.Frame())
	}
	return r
}

// Frame returns a random frame.
func (g *Generator) Frame() snapshot.Frame {
	f := snapshot.Frame{Mode: entity.FrameRead}
	if g.rng.Intn(2) == 0 {
		f.Mode = entity.FrameReadWrite
	}
	if g.rng.Intn(6) == 0 {
		f.Locks = entity.LockEdit
	}
	return f
}

// Label returns a random label at offset.
func (g *Generator) Label(offset int) snapshot.Label {
	return snapshot.Label{ID: g.id(), Offset: offset, Name: fmt.Sprintf("L%d", g.rng.Intn(50))}
}

func (g *Generator) value() string {
	return string(rune('a' + g.rng.Intn(26)))
}

func (g *Generator) locks() entity.Locks {
	if g.rng.Intn(5) != 0 {
		return entity.LockNone
	}
	return entity.Locks(g.rng.Intn(int(entity.LockAll) + 1))
}

// indices returns up to n distinct small indices, possibly negative.
func (g *Generator) indices(n int) []int {
	seen := map[int]bool{}
	var out []int
	for range g.rng.Intn(n + 1) {
		i := g.rng.Intn(16) - 4
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

// Mutate returns an edited copy of l: some entities are dropped, reordered,
// changed or added, the rest keep their ids.
func (g *Generator) Mutate(l snapshot.Layer) snapshot.Layer {
	out := l.Clone()
	var kept []snapshot.Cryptex
	for _, c := range out.Cryptexes {
		if g.rng.Intn(6) == 0 {
			continue
		}
		kept = append(kept, g.mutateCryptex(c))
	}
	if g.rng.Intn(3) == 0 {
		kept = append(kept, g.Cryptex())
	}
	g.rng.Shuffle(len(kept), func(i, j int) {
		if g.rng.Intn(2) == 0 {
			kept[i], kept[j] = kept[j], kept[i]
		}
	})
	out.Cryptexes = kept
	out.Normalize()
	return out
}

func (g *Generator) mutateCryptex(c snapshot.Cryptex) snapshot.Cryptex {
	if g.rng.Intn(3) == 0 {
		c.Position = entity.Vec2{X: g.rng.Intn(40) - 20, Y: g.rng.Intn(40) - 20}
	}
	if g.rng.Intn(5) == 0 {
		c.Rotated = !c.Rotated
	}
	if g.rng.Intn(6) == 0 {
		c.Locks = g.locks()
	}

	var tapes []snapshot.Tape
	for _, t := range c.Tapes {
		if g.rng.Intn(5) == 0 {
			continue
		}
		tapes = append(tapes, g.mutateTape(t))
	}
	if g.rng.Intn(3) == 0 {
		tapes = append(tapes, g.Tape())
	}
	g.rng.Shuffle(len(tapes), func(i, j int) { tapes[i], tapes[j] = tapes[j], tapes[i] })
	c.Tapes = tapes

	var rollers []snapshot.Roller
	used := map[string]bool{}
	for _, r := range c.Rollers {
		if g.rng.Intn(5) == 0 {
			continue
		}
		r = g.mutateRoller(r)
		used[r.Color] = true
		rollers = append(rollers, r)
	}
	if g.rng.Intn(3) == 0 {
		for _, col := range colors {
			if !used[col] {
				rollers = append(rollers, g.Roller(col))
				break
			}
		}
	}
	g.rng.Shuffle(len(rollers), func(i, j int) { rollers[i], rollers[j] = rollers[j], rollers[i] })
	c.Rollers = rollers

	var labels []snapshot.Label
	occupied := map[int]bool{}
	for _, lb := range c.Labels {
		switch g.rng.Intn(5) {
		case 0:
			continue
		case 1:
			lb.Name += "'"
		case 2:
			lb.Offset += 10 + g.rng.Intn(5)
		}
		if occupied[lb.Offset] {
			continue
		}
		occupied[lb.Offset] = true
		labels = append(labels, lb)
	}
	if off := g.rng.Intn(30); g.rng.Intn(3) == 0 && !occupied[off] {
		labels = append(labels, g.Label(off))
	}
	c.Labels = labels
	c.Normalize()
	return c
}

func (g *Generator) mutateTape(t snapshot.Tape) snapshot.Tape {
	if g.rng.Intn(3) == 0 {
		t.Shift = g.rng.Intn(7) - 3
	}
	if g.rng.Intn(6) == 0 {
		t.Sequence = entity.SequenceCustom
		t.Pattern = []string{g.value()}
	}
	if g.rng.Intn(6) == 0 {
		t.Locks = g.locks()
	}

	writes := map[int]string{}
	for _, w := range t.Writes {
		if g.rng.Intn(4) != 0 {
			writes[w.Index] = w.Value
		}
	}
	for _, i := range g.indices(3) {
		writes[i] = g.value()
	}
	t.Writes = nil
	for i, v := range writes {
		t.Writes = append(t.Writes, snapshot.Write{Index: i, Value: v})
	}

	notes := map[int]string{}
	for _, n := range t.Notes {
		if g.rng.Intn(3) != 0 {
			notes[n.Index] = n.Text
		}
	}
	for _, i := range g.indices(1) {
		notes[i] = "edited"
	}
	t.Notes = nil
	for i, text := range notes {
		t.Notes = append(t.Notes, snapshot.Note{Index: i, Text: text})
	}

	bps := map[int]bool{}
	for _, b := range t.Breakpoints {
		if g.rng.Intn(3) != 0 {
			bps[b] = true
		}
	}
	for _, i := range g.indices(1) {
		bps[i] = true
	}
	t.Breakpoints = nil
	for b := range bps {
		t.Breakpoints = append(t.Breakpoints, b)
	}

	t.Normalize()
	return t
}

func (g *Generator) mutateRoller(r snapshot.Roller) snapshot.Roller {
	if g.rng.Intn(3) == 0 {
		r.Move = g.rng.Intn(5)
		r.Hop = g.rng.Intn(3)
	}
	if g.rng.Intn(6) == 0 {
		r.Locks = g.locks()
	}
	frames := append([]snapshot.Frame(nil), r.Frames...)
	for i := range frames {
		if g.rng.Intn(4) == 0 {
			frames[i] = g.Frame()
		}
	}
	switch g.rng.Intn(3) {
	case 0:
		if len(frames) > 0 {
			frames = frames[:g.rng.Intn(len(frames))]
		}
	case 1:
		for range g.rng.Intn(3) {
			frames = append(frames, g.Frame())
		}
	}
	if len(frames) == 0 {
		frames = nil
	}
	r.Frames = frames
	return r
}

// LayerGen is a gopter generator of random layers.
func LayerGen() gopter.Gen {
	return func(p *gopter.GenParameters) *gopter.GenResult {
		return gopter.NewGenResult(FromRand(p.Rng).Layer(), gopter.NoShrinker)
	}
}

// Pair is a base layer and an edited copy of it.
type Pair struct {
	From snapshot.Layer
	To   snapshot.Layer
}

// PairGen generates a layer together with a random edit of it.
func PairGen() gopter.Gen {
	return func(p *gopter.GenParameters) *gopter.GenResult {
		g := FromRand(p.Rng)
		from := g.Layer()
		return gopter.NewGenResult(Pair{From: from, To: g.Mutate(from)}, gopter.NoShrinker)
	}
}
