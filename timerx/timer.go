package timerx

import "time"

// StopTimer stops the timer and drains its channel if it already fired.
func StopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// Reset stops the timer, drains it and arms it again for d.
// The channel will only carry the tick of this new period.
func Reset(timer *time.Timer, d time.Duration) {
	StopTimer(timer)
	timer.Reset(d)
}

// NewStoppedTimer returns a timer that is not running, ready to be armed with Reset.
func NewStoppedTimer() *time.Timer {
	timer := time.NewTimer(time.Hour)
	StopTimer(timer)
	return timer
}
