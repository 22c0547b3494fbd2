// Package reconcile computes the ordered records that turn a structure
// shaped like one snapshot into a structure shaped like another.
//
// Every nesting level (layer to cryptex, cryptex to tape, roller and
// label, roller to frame, tape to cell) is reconciled the same way:
//
//  1. index both sides by id (by position for frames, by index for cells)
//  2. destroy everything present only in the source
//  3. transform everything present in both: recurse, then move the
//     survivors whose order or layout changed
//  4. create everything present only in the target, at its target index
//
// Survivors keep their id and their live entity; they are never destroyed
// and re-created. Two exceptions follow from the record set: a label whose
// name or offset changed is destroyed and re-created under the same id,
// and a roller whose kind changed is too, since no record changes kind.
//
// Within a cryptex rollers are destroyed before any tape is transformed.
// Lock changes bracket the rest: flags a survivor loses are cleared first,
// flags it gains are set last, so no record is gated by a flag that is
// only present in the target. A layer applying the output must accept
// SetLocks, which lock-enforcing layers refuse.
package reconcile
