package vessel

import (
	"math"

	"github.com/krpc/spacecenter/pkg/core"
)

// Control is the pilot input of a vessel.
type Control struct {
	vessel *Vessel
	state  core.ControlState
}

// RCS reports whether reaction control is switched on.
func (c *Control) RCS() bool { return c.state.RCS }

// Throttle is the main throttle in [0, 1].
func (c *Control) Throttle() float64 {
	t := c.state.Throttle
	switch {
	case math.IsNaN(t), t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

func (c *Control) SetRCS(on bool) error {
	return c.vessel.submit(core.WriteRequest{Kind: core.WriteRCS, Bool: on})
}

// SetThrottle requests a new throttle setting, clamped to [0, 1].
func (c *Control) SetThrottle(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return ErrInvalidThrottle
	}
	t = math.Max(0, math.Min(1, t))
	return c.vessel.submit(core.WriteRequest{Kind: core.WriteThrottle, Number: t})
}
