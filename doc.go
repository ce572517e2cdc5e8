// Package treedelta computes, encodes, applies and reconciles
// structural differences between tree-shaped documents: hierarchical
// markup, decoded JSON values, or JsonML arrays. Given two documents
// of the same family it produces a patch that turns the first into
// the second; patches are context-aware, so they can also be applied
// to a third, slightly divergent document by locating the intended
// edit site via content fingerprints rather than rigid paths.
//
// Instead of operating on one wire syntax, treedelta operates on a
// generic rooted ordered tree built by a per-family adapter. A
// matching pass pairs the nodes of the two trees: identical subtrees
// are paired wholesale top-down by subtree hash, the remainder
// bottom-up by content and through already-matched children. An
// editor then derives the minimal sequence of node-update and
// forest-update operations from the matching, anchoring each one
// with head/tail fingerprints: the FNV-1a hashes of the nodes
// surrounding the edit site in document order.
//
// Application is the reverse trip: a resolver locates each
// operation's anchor in the target, following the stored path when
// it still fits and otherwise sliding the fingerprint windows over
// the target's node sequence; each resolved operation becomes a
// reversible hunk that can be toggled on and off for as long as the
// patching session lives.
//
// Three families ship with the package: JsonML, markup via
// golang.org/x/net/html, and plain decoded JSON. Everything the
// engine knows about a family is bundled in a Family value, so
// further document representations can be wired in from outside.
package treedelta
