// Package irrigation holds the actuation policy and the per-user settings it reads.
package irrigation

import "github.com/technohub6911/smartcropx/internal/data"

// Decide reports whether an irrigation command should be issued.
// The device must opt in; past that, irrigate only strictly below threshold,
// so saturated soil never triggers a command.
func Decide(moisture float64, deviceRequestedAuto bool, s data.IrrigationSettings) bool {
	if !deviceRequestedAuto {
		return false
	}
	return moisture < s.Threshold
}
