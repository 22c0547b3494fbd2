// Package script runs Lua authoring scripts against a workspace engine.
//
// A script drives the engine through the global `cryptex` table. Each
// editing call applies one record to the edit layer, so the engine's
// modification log is the script's output:
//
//	cryptex.add_cryptex(100, 0, 0)
//	cryptex.add_tape(100, 0, 1, {"a", "b"})
//	cryptex.batch("fill", function()
//	    for i = 0, 3 do
//	        cryptex.write(1, i, "x")
//	    end
//	end)
//	cryptex.undo()
//
// checkpoint() returns a handle that undo_to(cp) rewinds to. Roller colors
// are unique per kind within a cryptex; add_roller and color raise on a
// color already in use. lock changes lock flags and needs an engine built
// without lock enforcement.
//
// Ids are either integers, mapped with entity.IDFromInt, or canonical id
// strings. Editing calls raise a Lua error when the record is rejected;
// scripts may catch it with pcall.
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries. File loading, require and the io/os libraries are absent.
package script
