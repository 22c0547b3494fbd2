// Package topic provides dot separated topics and wildcard matching for the
// event bus.
//
//	edit.tape.*     matches edit.tape.added, edit.tape.moved
//	edit.**         matches every edit layer notification
//	*.tape.added    matches base.tape.added, edit.tape.added
package topic
