package reconcile

import (
	"fmt"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

type placement struct {
	kind   entity.Kind
	parent entity.ID
}

// validatePair checks each side on its own, then that every id present on
// both sides names the same kind of entity under the same cryptex. Moving
// a tape, roller or label between cryptexes has no record.
func validatePair(from, to snapshot.Layer) error {
	if err := from.Validate(); err != nil {
		return fmt.Errorf("%w: source: %w", ErrInvalidInput, err)
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("%w: target: %w", ErrInvalidInput, err)
	}

	where := placements(from)
	for id, p := range placements(to) {
		q, ok := where[id]
		if !ok {
			continue
		}
		if q.kind != p.kind {
			return fmt.Errorf("%w: id %s is a %s in the source and a %s in the target", ErrInvalidInput, id, q.kind, p.kind)
		}
		if q.parent != p.parent {
			return fmt.Errorf("%w: %s %s moves from cryptex %s to %s", ErrInvalidInput, p.kind, id, q.parent, p.parent)
		}
	}
	return nil
}

func placements(l snapshot.Layer) map[entity.ID]placement {
	m := make(map[entity.ID]placement)
	for _, c := range l.Cryptexes {
		m[c.ID] = placement{kind: entity.KindCryptex}
		for _, t := range c.Tapes {
			m[t.ID] = placement{kind: entity.KindTape, parent: c.ID}
		}
		for _, r := range c.Rollers {
			m[r.ID] = placement{kind: entity.KindRoller, parent: c.ID}
		}
		for _, lb := range c.Labels {
			m[lb.ID] = placement{kind: entity.KindLabel, parent: c.ID}
		}
	}
	return m
}
