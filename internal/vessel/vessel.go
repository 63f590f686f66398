// Package vessel aggregates per-part state into vessel-level totals.
//
// A Vessel wraps one immutable snapshot of a simulated vessel. All reads are
// pure functions of that snapshot. Mutations are issued as write requests
// through a part.Sink and become visible in a later snapshot.
package vessel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/internal/staging"
	"github.com/krpc/spacecenter/pkg/core"
)

var (
	// ErrNotRecoverable is returned by Recover when the vessel is not in a
	// recoverable situation.
	ErrNotRecoverable = errors.New("vessel is not recoverable")

	ErrInvalidName     = errors.New("vessel name must not be empty")
	ErrInvalidThrottle = errors.New("throttle must be a number")
)

// Vessel is a read model over one vessel snapshot.
type Vessel struct {
	id         uint64
	name       string
	vtype      core.VesselType
	situation  core.VesselSituation
	ut         float64
	launchTime float64
	moi        core.Vector3
	inertia    core.Tensor3

	parts   *part.Tree
	control *Control
	sink    part.Sink
}

// New builds a vessel from a reading. The part tree is validated and its
// decouple stages resolved. sink may be nil for a read-only vessel.
func New(r *core.VesselReading, sink part.Sink) (*Vessel, error) {
	if r == nil {
		return nil, errors.New("nil vessel reading")
	}
	if r.Situation != "" && !r.Situation.Valid() {
		return nil, fmt.Errorf("vessel %d: unknown situation %q", r.ID, r.Situation)
	}

	tree, err := part.NewTree(r, sink)
	if err != nil {
		return nil, fmt.Errorf("vessel %d: %w", r.ID, err)
	}
	if err := staging.Resolve(tree); err != nil {
		return nil, fmt.Errorf("vessel %d: %w", r.ID, err)
	}

	vtype := r.Type
	if vtype == "" {
		vtype = core.VesselTypeShip
	}

	v := &Vessel{
		id:         r.ID,
		name:       r.Name,
		vtype:      vtype,
		situation:  r.Situation,
		ut:         r.UT,
		launchTime: r.LaunchTime,
		moi:        r.MomentOfInertia,
		inertia:    r.InertiaTensor,
		parts:      tree,
		sink:       sink,
	}
	v.control = &Control{vessel: v, state: r.Control}
	return v, nil
}

func (v *Vessel) String() string {
	return fmt.Sprintf("%s (%d)", v.name, v.id)
}

func (v *Vessel) ID() uint64                      { return v.id }
func (v *Vessel) Name() string                    { return v.name }
func (v *Vessel) Type() core.VesselType           { return v.vtype }
func (v *Vessel) Situation() core.VesselSituation { return v.situation }
func (v *Vessel) UT() float64                     { return v.ut }
func (v *Vessel) LaunchTime() float64             { return v.launchTime }
func (v *Vessel) Parts() *part.Tree               { return v.parts }
func (v *Vessel) Control() *Control               { return v.control }

// MomentOfInertia is the principal moment of inertia reported by the
// simulation, in kg.m², about (pitch, roll, yaw).
func (v *Vessel) MomentOfInertia() core.Vector3 { return v.moi }

// InertiaTensor is the full inertia tensor in row-major order.
func (v *Vessel) InertiaTensor() core.Tensor3 { return v.inertia }

// MET is the mission elapsed time: simulation time since launch.
// Vessels that have not launched yet report zero.
func (v *Vessel) MET() float64 {
	met := v.ut - v.launchTime
	if met < 0 {
		return 0
	}
	return met
}

// Recoverable reports whether the vessel can be recovered from its
// current situation.
func (v *Vessel) Recoverable() bool {
	switch v.situation {
	case core.SituationPreLaunch, core.SituationLanded, core.SituationSplashed:
		return true
	}
	return false
}

// Recover requests the vessel be recovered. It fails unless Recoverable.
func (v *Vessel) Recover() error {
	if !v.Recoverable() {
		return fmt.Errorf("vessel %s is %s: %w", v, v.situation, ErrNotRecoverable)
	}
	return v.submit(core.WriteRequest{Kind: core.WriteRecover})
}

// SetName requests a rename. Leading and trailing space is trimmed.
func (v *Vessel) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	return v.submit(core.WriteRequest{Kind: core.WriteVesselName, Text: name})
}

func (v *Vessel) SetType(t core.VesselType) error {
	if _, err := core.ParseVesselType(string(t)); err != nil {
		return err
	}
	return v.submit(core.WriteRequest{Kind: core.WriteVesselType, Text: string(t)})
}

func (v *Vessel) submit(w core.WriteRequest) error {
	if v.sink == nil {
		return part.ErrReadOnly
	}
	w.VesselID = v.id
	return v.sink.Submit(w)
}
