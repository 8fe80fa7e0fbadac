// Package domain defines the core data structures of the simulation engine.
package domain

// Signal is a strategy's directional intent for a ticker on a given date.
type Signal int

const (
	// SignalFlat requests no position change.
	SignalFlat Signal = iota
	// SignalLong requests long exposure.
	SignalLong
	// SignalShort requests short exposure, or an exit when short selling
	// is disabled.
	SignalShort
)

// String returns the string representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalFlat:
		return "flat"
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "unknown"
	}
}
