// Package indirectx manages the lifetime of objects arranged in a tree of
// nested scopes. A Host is built from an immutable tree of provider nodes;
// each node says how instances of one contract are produced (scope,
// singleton or transient) and which contracts may cross its edges. Resolving
// a contract from an instance walks outwards through the visibility filters,
// builds whatever is missing exactly once and returns a Lock that keeps the
// instance alive.
//
// Disposal runs asynchronously and always completes children before their
// parent. An instance is only torn down after every lock against it has been
// released.
//
// The generic helpers Resolve, Require and Adapt make using this more concise.
package indirectx
