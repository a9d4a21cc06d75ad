// Package ratelimit implements fixed-window request limiting.
//
// Each (policy, key) pair owns one counter per discrete window. The bucket
// key embeds the window start, so boundaries only ever move forward and a
// new window starts from zero without any reset step. Counting is delegated
// to a Counter that must increment-and-compare atomically:
//
//   - RedisCounter runs a single Lua script against a shared Redis, the
//     backend for multi-instance deployments.
//   - MemoryCounter keeps buckets in a mutex-guarded map for single-instance
//     and development use.
//
// Counters stop incrementing once a bucket passes its limit, so rejected
// calls never inflate the stored count beyond limit+1.
package ratelimit
