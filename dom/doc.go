// Package dom prepares a live carousel surface for export.
//
// Sanitize deep-copies a subtree, strips editor affordances by element id
// prefix, routes external images through the same-origin proxy (waiting
// until every one loads), and inlines font families resolved from CSS
// custom properties. The live tree is never modified.
package dom
