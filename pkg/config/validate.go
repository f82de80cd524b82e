// Package config implements the pure sensor-configuration validator from
// spec §4.4: a cloud-sent list of per-sensor event configs is rejected
// wholesale if any single entry is internally inconsistent.
package config

import (
	"fmt"

	"github.com/prga/knotgw/pkg/gwerr"
	"github.com/prga/knotgw/pkg/knot"
)

// requiredFlags is the set of event flags at least one of which must be
// set; EvtNone alone, or only unrecognized bits, is invalid.
const requiredFlags = knot.EvtTime | knot.EvtLowerThreshold | knot.EvtUpperThreshold | knot.EvtChange | knot.EvtUnregistered

// Validate checks every entry in configs against the three rules in
// spec §4.4 and returns a *gwerr.ValidationError (wrapping
// gwerr.ErrInvalidConfig) describing the rules violated, or nil if the
// whole list is valid. An entry that fails the flag mask check is not
// checked against the time and threshold rules. All other fields are
// trusted, since they arrive unsigned off the wire.
func Validate(configs []knot.SensorConfig) error {
	vb := &gwerr.ValidationBuilder{}

	for _, c := range configs {
		// Flag mask check: at least one recognized flag must be set.
		if c.EventFlags&requiredFlags == 0 {
			vb.AddErrorf("sensor %d: event_flags 0x%02x sets no recognized trigger", c.SensorID, uint8(c.EventFlags))
			continue
		}

		// Time consistency.
		if c.EventFlags&knot.EvtTime != 0 {
			if c.TimeSec == 0 {
				vb.AddErrorf("sensor %d: TIME flag set but time_sec is 0", c.SensorID)
			}
		} else if c.TimeSec != 0 {
			vb.AddErrorf("sensor %d: time_sec=%d but TIME flag is clear", c.SensorID, c.TimeSec)
		}

		// Threshold consistency: upper must be strictly greater than lower.
		if c.EventFlags&(knot.EvtLowerThreshold|knot.EvtUpperThreshold) != 0 {
			if !c.LowerLimit.Less(c.UpperLimit) {
				vb.AddErrorf("sensor %d: upper_limit %s must be greater than lower_limit %s",
					c.SensorID, decimalString(c.UpperLimit), decimalString(c.LowerLimit))
			}
		}
	}

	return vb.Build()
}

func decimalString(d knot.Decimal) string {
	return fmt.Sprintf("%d.%d", d.IntPart, d.FracPart)
}
