// Package record defines the closed set of edit operations over a live
// model.Layer.
//
// Every Record is a plain value. Apply performs it and returns the Record
// that exactly undoes it; with invertOnly set, Apply only validates and
// computes the inverse. A record that targets a locked entity fails with
// model.ErrLocked and leaves the layer untouched. A record that names an
// id absent from the layer fails with a model.ErrInvariant error: the log
// and the graph have desynchronized.
package record
