// Package part models a vessel as an arena of parts connected by an
// attachment tree and an independent fuel-line graph. Each part exposes
// optional capability facets derived from its simulation module tags.
package part

import (
	"errors"
	"fmt"

	"github.com/krpc/spacecenter/pkg/core"
)

var (
	// ErrReadOnly is returned by facet actions on a tree without a write sink.
	ErrReadOnly = errors.New("part tree is read-only")

	// ErrInvalidState is returned when an action's precondition does not hold.
	ErrInvalidState = errors.New("invalid state")
)

// Sink accepts write requests destined for the simulation.
type Sink interface {
	Submit(w core.WriteRequest) error
}

// ID is a handle into a Tree's part arena.
type ID int

// NoPart is the handle of an absent part.
const NoPart ID = -1

// Part is one part of a vessel. Parts are created by NewTree and are
// immutable afterwards apart from the decouple stage the tree resolver assigns.
type Part struct {
	tree     *Tree
	id       ID
	parent   ID
	children []ID

	r          core.PartReading
	mass       float64
	tags       map[string]struct{}
	categories CategorySet

	decoupleStage int

	engine            *Engine
	reactionWheel     *ReactionWheel
	rcs               *RCS
	controlSurface    *ControlSurface
	decoupler         *Decoupler
	dockingPort       *DockingPort
	parachute         *Parachute
	light             *Light
	cargoBay          *CargoBay
	intake            *Intake
	solarPanel        *SolarPanel
	radiator          *Radiator
	landingGear       *LandingGear
	landingLeg        *LandingLeg
	resourceHarvester *ResourceHarvester
	resourceConverter *ResourceConverter
	sensor            *Sensor
	fairing           *Fairing
	launchClamp       *LaunchClamp
}

func newPart(t *Tree, id ID, r core.PartReading) *Part {
	tags := make([]string, 0, len(r.Modules))
	for _, m := range r.Modules {
		tags = append(tags, m.Name)
	}

	p := &Part{
		tree:          t,
		id:            id,
		parent:        NoPart,
		r:             r,
		tags:          tagSet(tags),
		decoupleStage: core.NoStage,
	}
	p.categories = classify(p.tags)

	p.mass = r.DryMass
	for _, res := range r.Resources {
		p.mass += res.Mass()
	}

	p.attachFacets()
	return p
}

func (p *Part) String() string {
	return fmt.Sprintf("%s#%d", p.r.Name, p.r.ID)
}

// ID returns the arena handle of the part.
func (p *Part) ID() ID { return p.id }

// SimID returns the identifier the simulation uses for the part.
func (p *Part) SimID() uint64 { return p.r.ID }

// VesselID returns the simulation id of the owning vessel.
func (p *Part) VesselID() uint64 { return p.tree.vesselID }

func (p *Part) Name() string             { return p.r.Name }
func (p *Part) Title() string            { return p.r.Title }
func (p *Part) Cost() float64            { return p.r.Cost }
func (p *Part) DryMass() float64         { return p.r.DryMass }
func (p *Part) ImpactTolerance() float64 { return p.r.ImpactTolerance }
func (p *Part) Crossfeed() bool          { return p.r.Crossfeed }
func (p *Part) Shielded() bool           { return p.r.Shielded }
func (p *Part) DynamicPressure() float64 { return p.r.DynamicPressure }
func (p *Part) Thermal() core.Thermal    { return p.r.Thermal }

// Mass is the dry mass plus the mass of all held resources.
func (p *Part) Mass() float64 { return p.mass }

// Massless reports whether the part contributes no mass.
func (p *Part) Massless() bool { return p.mass == 0 }

// Resources returns the resource containers of the part.
func (p *Part) Resources() []core.ResourceReading {
	out := make([]core.ResourceReading, len(p.r.Resources))
	copy(out, p.r.Resources)
	return out
}

// Modules returns the simulation modules in reported order.
func (p *Part) Modules() []core.ModuleReading {
	out := make([]core.ModuleReading, len(p.r.Modules))
	copy(out, p.r.Modules)
	return out
}

// HasModule reports whether the part carries the named module tag.
func (p *Part) HasModule(name string) bool {
	_, ok := p.tags[name]
	return ok
}

// Categories returns the capability categories of the part.
func (p *Part) Categories() CategorySet { return p.categories }

// Parent returns the parent part, or nil for the root.
func (p *Part) Parent() *Part {
	if p.parent == NoPart {
		return nil
	}
	return p.tree.parts[p.parent]
}

// Children returns the direct children in attachment order.
func (p *Part) Children() []*Part {
	return p.tree.resolve(p.children)
}

// IsRoot reports whether the part has no parent.
func (p *Part) IsRoot() bool { return p.parent == NoPart }

// AxiallyAttached reports whether the part is stack-attached to its parent.
// Non-root parts without a reported attach mode count as axial.
func (p *Part) AxiallyAttached() bool {
	return !p.IsRoot() && p.r.AttachMode != core.AttachRadial
}

// RadiallyAttached reports whether the part is surface-attached to its parent.
func (p *Part) RadiallyAttached() bool {
	return !p.IsRoot() && p.r.AttachMode == core.AttachRadial
}

// Stage is the stage in which the part's own action fires, or -1.
func (p *Part) Stage() int { return p.r.Stage }

// DecoupleStage is the stage in which the part separates from the vessel,
// or -1 if it never does.
func (p *Part) DecoupleStage() int { return p.decoupleStage }

// ReportedDecoupleStage returns the decouple stage the simulation sent with
// the part, if any.
func (p *Part) ReportedDecoupleStage() (int, bool) {
	if p.r.DecoupleStage == nil {
		return 0, false
	}
	return *p.r.DecoupleStage, true
}

// FuelLinesFrom returns the parts with fuel lines running into this part.
func (p *Part) FuelLinesFrom() []*Part {
	return p.tree.resolve(p.tree.fuelIn[p.id])
}

// FuelLinesTo returns the parts this part feeds through fuel lines.
func (p *Part) FuelLinesTo() []*Part {
	return p.tree.resolve(p.tree.fuelOut[p.id])
}

// IsFuelLine reports whether the part is a fuel line connector with no
// payload resources.
func (p *Part) IsFuelLine() bool {
	return p.HasModule(FuelLineModule) && len(p.r.Resources) == 0
}

func (p *Part) submit(w core.WriteRequest) error {
	if p.tree.sink == nil {
		return ErrReadOnly
	}
	w.VesselID = p.tree.vesselID
	w.PartID = p.r.ID
	return p.tree.sink.Submit(w)
}
