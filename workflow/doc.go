// Package workflow interprets hand-authored conversational flow graphs.
//
// A graph is a set of typed nodes (start, message, condition, branch, action,
// variable, loop, end) connected by next pointers. The engine walks the graph
// deterministically, accumulating response text, exported variables, and the
// list of executed actions. Traversal is bounded by a global visit cap and a
// per-loop iteration cap, so execution terminates even on malformed or cyclic
// graphs. Authoring mistakes (unknown node references, invalid regex
// patterns) stop or degrade the walk gracefully rather than failing it.
package workflow
