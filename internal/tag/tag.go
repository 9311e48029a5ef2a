// Package tag carries the build-time debug switch used to gate extra
// invariant checks that are too expensive, or too destructive, for
// production builds.
package tag

// Debug is true in builds compiled with the "ao2debug" build tag. It
// gates zeroing of an object's payload when the object is destroyed.
var Debug = debug
