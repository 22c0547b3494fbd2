// Package entity holds the identity and flag types shared by snapshots, the
// live graph and records.
//
// Every structural entity (Cryptex, Tape, Roller, Label) is identified by a
// 128-bit ID that survives reordering and persistence. Frames and Notes have
// no id of their own and are addressed by position.
package entity
