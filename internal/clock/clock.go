package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Clock supplies the current time.  Components that need testable expiry,
// such as the executor capability cache, take a Clock in their constructor
// instead of calling time.Now directly.
type Clock func() time.Time

// System returns the process wall clock.
func System() Clock { return func() time.Time { return Now() } }
