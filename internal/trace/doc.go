// Package trace records leveled spans and points for the class rewriting
// pipeline.
//
// Tracing is enabled from the command line:
//
//	patchwork transform --trace=- --trace-level=module mods/example.jar
//	patchwork transform --trace-mode=ring --trace-level=module mods/example.jar
//
// Stream mode writes events as they happen, ring mode keeps the last
// events in memory and dumps them only when the build fails, both does
// the two at once. Output ending in .ndjson or .jsonl is written as
// newline-delimited JSON.
//
// Module spans carry the internal name of the class they cover, so a
// ring dump can be narrowed to one failing class:
//
//	span := trace.BeginModule(t, "com/example/Handlers", "submit", trace.CurrentSpan(ctx))
//	defer span.End("")
package trace
