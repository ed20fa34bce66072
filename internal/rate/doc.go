// Package rate throttles repeated failed logins per username.
//
// A fixed window starts at the first failure for a key. After MaxAttempts
// failures Check refuses the key until the window ends.
// A successful login resets the key.
//
// Two backends share the same semantics: Redis counters (INCR + EXPIRE on the
// first hit) for process-shared state, and an in-process map.
package rate
