// Package cache eliminates redundant upstream moderation work.
//
// ResultCache is a TTL-bounded mapping from content fingerprint to verdict,
// with an in-process level and an optional Redis write-through level.
// Coalescer tracks fingerprints currently in flight so concurrent duplicate
// submissions can short-circuit instead of issuing parallel upstream calls.
package cache
