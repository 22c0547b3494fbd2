// Package model is the live entity graph edited by records.
//
// A Layer owns an ordered sequence of Cryptexes, each owning Tapes, Rollers
// and Labels. Entities expose read-only accessors; every mutation goes
// through a Layer method so the layer can keep its id indexes current and
// emit notifications in application order. Mutators validate before they
// touch anything: a failed call leaves the graph unchanged.
//
// Back-references (Tape to Cryptex, Roller to Cryptex) are non-owning; the
// Cryptex slice is the only owner.
package model
