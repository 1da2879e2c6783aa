package breaks

import "time"

const (
	DefaultExtendThreshold = 5 * time.Minute
	DefaultExtendWindow    = 5 * time.Minute
)

// ExtensionPolicy pushes the deadline back when a bid lands in the closing window.
// There is no cap on the total number of extensions.
type ExtensionPolicy struct {
	Threshold time.Duration
	Window    time.Duration
}

func DefaultExtensionPolicy() ExtensionPolicy {
	return ExtensionPolicy{Threshold: DefaultExtendThreshold, Window: DefaultExtendWindow}
}

// Apply returns the end time after a bid committed at now, and whether it moved.
func (p ExtensionPolicy) Apply(end, now time.Time) (time.Time, bool) {
	if p.Window <= 0 {
		return end, false
	}
	if end.Sub(now) > p.Threshold {
		return end, false
	}
	return end.Add(p.Window), true
}
