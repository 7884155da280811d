// Package clock provides a small owned clock type rather than
// scattering time.Now() calls through the codebase.
package clock

import "time"

// Clock tracks elapsed wall-clock time between Start and Stop.
type Clock struct {
	startTime time.Time
	elapsed   time.Duration
}

// New returns a stopped Clock.
func New() *Clock {
	return &Clock{}
}

// Start resets and starts the clock.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Update refreshes Elapsed from the current time. No-op on a stopped
// clock.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Stop freezes the clock without resetting Elapsed.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

// Elapsed returns the duration measured at the last Update.
func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

// UnixSeconds returns the current wall-clock time as Unix seconds,
// used for ResourcePackageHeader.CreateTime.
func UnixSeconds() uint64 {
	return uint64(time.Now().Unix())
}
