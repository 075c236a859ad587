// Package cache memoizes stage outputs for the lifetime of an orchestrator.
//
// Keys are derived from the stage name plus the fields that stage declares
// relevant through its CacheKey, so near-duplicate runs that differ only in
// irrelevant fields still hit. Entries hold the stage Delta encoded as JSON;
// every Get decodes a fresh copy, so callers never share pointers with the
// cache or with each other.
//
// The cache is in-memory only. A positive MaxEntries bound evicts the oldest
// insertion first.
package cache
