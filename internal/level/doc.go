// Package level reads and writes level and solution files.
//
// A level carries the base layer the player starts from, a suite of test
// cases, a reference solution and star thresholds. A solution is a replay
// log against a level's base layer plus metadata. Files are JSON or YAML,
// chosen by extension, and are validated in full on load and on save: a
// file that fails validation is never returned.
package level
