// Package replay holds Replay Logs: ordered record lists that, applied to
// a base layer, reproduce an edit session. Solutions, test case
// initializations and reference solutions are all replay logs.
//
// Replays never partially populate a layer. Apply either returns the
// resulting snapshot or an error wrapping ErrReplay.
package replay
