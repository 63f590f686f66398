package part

import (
	"fmt"

	"github.com/krpc/spacecenter/pkg/core"
)

// attachFacets fills one facet slot per category the part belongs to.
// Missing live state in the reading yields a zero-valued facet.
func (p *Part) attachFacets() {
	r := &p.r
	for _, c := range p.categories.Slice() {
		switch c {
		case CategoryEngine:
			p.engine = &Engine{part: p, s: deref(r.Engine)}
		case CategoryReactionWheel:
			p.reactionWheel = &ReactionWheel{part: p, s: deref(r.ReactionWheel)}
		case CategoryRCS:
			p.rcs = &RCS{part: p, s: deref(r.RCS)}
		case CategoryControlSurface:
			p.controlSurface = &ControlSurface{part: p, s: deref(r.ControlSurface)}
		case CategoryDecoupler:
			p.decoupler = &Decoupler{part: p, s: deref(r.Decoupler)}
		case CategoryDockingPort:
			p.dockingPort = &DockingPort{part: p, s: deref(r.DockingPort)}
		case CategoryParachute:
			p.parachute = &Parachute{part: p, s: deref(r.Parachute)}
		case CategoryLight:
			p.light = &Light{part: p, s: deref(r.Light)}
		case CategoryCargoBay:
			p.cargoBay = &CargoBay{part: p, s: deref(r.CargoBay)}
		case CategoryIntake:
			p.intake = &Intake{part: p, s: deref(r.Intake)}
		case CategorySolarPanel:
			p.solarPanel = &SolarPanel{part: p, s: deref(r.SolarPanel)}
		case CategoryRadiator:
			p.radiator = &Radiator{part: p, s: deref(r.Radiator)}
		case CategoryLandingGear:
			p.landingGear = &LandingGear{part: p, s: deref(r.LandingGear)}
		case CategoryLandingLeg:
			p.landingLeg = &LandingLeg{part: p, s: deref(r.LandingLeg)}
		case CategoryResourceHarvester:
			p.resourceHarvester = &ResourceHarvester{part: p, s: deref(r.ResourceHarvester)}
		case CategoryResourceConverter:
			p.resourceConverter = &ResourceConverter{part: p, s: deref(r.ResourceConverter)}
		case CategorySensor:
			p.sensor = &Sensor{part: p, s: deref(r.Sensor)}
		case CategoryFairing:
			p.fairing = &Fairing{part: p, s: deref(r.Fairing)}
		case CategoryLaunchClamp:
			p.launchClamp = &LaunchClamp{part: p, s: deref(r.LaunchClamp)}
		}
	}
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Facet accessors return nil when the part does not have the capability.

func (p *Part) Engine() *Engine                       { return p.engine }
func (p *Part) ReactionWheel() *ReactionWheel         { return p.reactionWheel }
func (p *Part) RCS() *RCS                             { return p.rcs }
func (p *Part) ControlSurface() *ControlSurface       { return p.controlSurface }
func (p *Part) Decoupler() *Decoupler                 { return p.decoupler }
func (p *Part) DockingPort() *DockingPort             { return p.dockingPort }
func (p *Part) Parachute() *Parachute                 { return p.parachute }
func (p *Part) Light() *Light                         { return p.light }
func (p *Part) CargoBay() *CargoBay                   { return p.cargoBay }
func (p *Part) Intake() *Intake                       { return p.intake }
func (p *Part) SolarPanel() *SolarPanel               { return p.solarPanel }
func (p *Part) Radiator() *Radiator                   { return p.radiator }
func (p *Part) LandingGear() *LandingGear             { return p.landingGear }
func (p *Part) LandingLeg() *LandingLeg               { return p.landingLeg }
func (p *Part) ResourceHarvester() *ResourceHarvester { return p.resourceHarvester }
func (p *Part) ResourceConverter() *ResourceConverter { return p.resourceConverter }
func (p *Part) Sensor() *Sensor                       { return p.sensor }
func (p *Part) Fairing() *Fairing                     { return p.fairing }
func (p *Part) LaunchClamp() *LaunchClamp             { return p.launchClamp }

// Engine is a propulsive part.
type Engine struct {
	part *Part
	s    core.EngineState
}

func (e *Engine) Part() *Part              { return e.part }
func (e *Engine) Active() bool             { return e.s.Active }
func (e *Engine) CanShutdown() bool        { return e.s.CanShutdown }
func (e *Engine) ThrottleLocked() bool     { return e.s.ThrottleLocked }
func (e *Engine) HasFuel() bool            { return e.s.HasFuel }
func (e *Engine) MaxThrust() float64       { return e.s.MaxThrust }
func (e *Engine) AvailableThrust() float64 { return e.s.AvailableThrust }
func (e *Engine) ISP() float64             { return e.s.ISP }
func (e *Engine) VacuumISP() float64       { return e.s.VacuumISP }
func (e *Engine) SeaLevelISP() float64     { return e.s.SeaLevelISP }

func (e *Engine) Propellants() []string {
	return append([]string(nil), e.s.Propellants...)
}

// Throttle is the throttle the engine runs at: full for throttle-locked
// engines, the vessel throttle otherwise.
func (e *Engine) Throttle() float64 {
	if e.s.ThrottleLocked {
		return 1
	}
	return clamp01(e.part.tree.control.Throttle)
}

// Thrust is the thrust currently produced. It is zero unless the engine is
// active and fuelled.
func (e *Engine) Thrust() float64 {
	if !e.s.Active || !e.s.HasFuel {
		return 0
	}
	return e.Throttle() * e.s.AvailableThrust
}

// AvailableTorque is the gimbal torque at the current thrust.
func (e *Engine) AvailableTorque() core.Vector3 {
	thrust := e.Thrust()
	if thrust == 0 || e.s.AvailableThrust == 0 {
		return core.Vector3{}
	}
	return e.s.GimbalTorque.Scale(thrust / e.s.AvailableThrust)
}

// SetActive requests the engine be activated or shut down.
func (e *Engine) SetActive(active bool) error {
	if !active && e.s.Active && !e.s.CanShutdown {
		return fmt.Errorf("engine %s cannot be shut down: %w", e.part, ErrInvalidState)
	}
	return e.part.submit(core.WriteRequest{Kind: core.WriteEngineActive, Bool: active})
}

// ReactionWheel is a torque-producing part.
type ReactionWheel struct {
	part *Part
	s    core.ReactionWheelState
}

func (w *ReactionWheel) Part() *Part             { return w.part }
func (w *ReactionWheel) Active() bool            { return w.s.Active }
func (w *ReactionWheel) Broken() bool            { return w.s.Broken }
func (w *ReactionWheel) MaxTorque() core.Vector3 { return w.s.MaxTorque }

// AvailableTorque is the max torque while active and intact, zero otherwise.
func (w *ReactionWheel) AvailableTorque() core.Vector3 {
	if !w.s.Active || w.s.Broken {
		return core.Vector3{}
	}
	return w.s.MaxTorque
}

func (w *ReactionWheel) SetActive(active bool) error {
	return w.part.submit(core.WriteRequest{Kind: core.WriteReactionWheelActive, Bool: active})
}

// RCS is a reaction control thruster block.
type RCS struct {
	part *Part
	s    core.RCSState
}

func (r *RCS) Part() *Part             { return r.part }
func (r *RCS) Enabled() bool           { return r.s.Enabled }
func (r *RCS) MaxThrust() float64      { return r.s.MaxThrust }
func (r *RCS) VacuumISP() float64      { return r.s.VacuumISP }
func (r *RCS) MaxTorque() core.Vector3 { return r.s.MaxTorque }

// Active reports whether the thruster fires on pilot input: vessel RCS is
// on, the thruster is enabled and not shielded.
func (r *RCS) Active() bool {
	return r.part.tree.control.RCS && r.s.Enabled && !r.part.Shielded()
}

func (r *RCS) AvailableTorque() core.Vector3 {
	if !r.Active() {
		return core.Vector3{}
	}
	return r.s.MaxTorque
}

func (r *RCS) SetEnabled(enabled bool) error {
	return r.part.submit(core.WriteRequest{Kind: core.WriteRCSEnabled, Bool: enabled})
}

// ControlSurface is an aerodynamic control surface.
type ControlSurface struct {
	part *Part
	s    core.ControlSurfaceState
}

func (c *ControlSurface) Part() *Part             { return c.part }
func (c *ControlSurface) PitchEnabled() bool      { return c.s.PitchEnabled }
func (c *ControlSurface) YawEnabled() bool        { return c.s.YawEnabled }
func (c *ControlSurface) RollEnabled() bool       { return c.s.RollEnabled }
func (c *ControlSurface) Inverted() bool          { return c.s.Inverted }
func (c *ControlSurface) Deployed() bool          { return c.s.Deployed }
func (c *ControlSurface) SurfaceArea() float64    { return c.s.SurfaceArea }
func (c *ControlSurface) MaxTorque() core.Vector3 { return c.s.MaxTorque }

// AvailableTorque masks the max torque by the enabled axes.
func (c *ControlSurface) AvailableTorque() core.Vector3 {
	var t core.Vector3
	if c.s.PitchEnabled {
		t[0] = c.s.MaxTorque[0]
	}
	if c.s.RollEnabled {
		t[1] = c.s.MaxTorque[1]
	}
	if c.s.YawEnabled {
		t[2] = c.s.MaxTorque[2]
	}
	return t
}

// Decoupler separates the subtree below it when fired.
type Decoupler struct {
	part *Part
	s    core.DecouplerState
}

func (d *Decoupler) Part() *Part      { return d.part }
func (d *Decoupler) Decoupled() bool  { return d.s.Decoupled }
func (d *Decoupler) Staged() bool     { return d.s.Staged }
func (d *Decoupler) Impulse() float64 { return d.s.Impulse }

func (d *Decoupler) Decouple() error {
	if d.s.Decoupled {
		return fmt.Errorf("decoupler %s already fired: %w", d.part, ErrInvalidState)
	}
	return d.part.submit(core.WriteRequest{Kind: core.WriteDecouple})
}

// DockingPort joins two vessels.
type DockingPort struct {
	part *Part
	s    core.DockingPortState
}

const DockingStateDocked = "docked"

func (d *DockingPort) Part() *Part               { return d.part }
func (d *DockingPort) State() string             { return d.s.State }
func (d *DockingPort) ReengageDistance() float64 { return d.s.ReengageDistance }
func (d *DockingPort) HasShield() bool           { return d.s.HasShield }
func (d *DockingPort) Shielded() bool            { return d.s.Shielded }

// DockedPart returns the part docked to this port, if it is on the same vessel.
func (d *DockingPort) DockedPart() *Part {
	if d.s.DockedPartID == nil {
		return nil
	}
	p, _ := d.part.tree.BySimID(*d.s.DockedPartID)
	return p
}

func (d *DockingPort) Undock() error {
	if d.s.State != DockingStateDocked {
		return fmt.Errorf("docking port %s is %q: %w", d.part, d.s.State, ErrInvalidState)
	}
	return d.part.submit(core.WriteRequest{Kind: core.WriteUndock})
}

type Parachute struct {
	part *Part
	s    core.ParachuteState
}

func (c *Parachute) Part() *Part                { return c.part }
func (c *Parachute) Deployed() bool             { return c.s.Deployed }
func (c *Parachute) Armed() bool                { return c.s.Armed }
func (c *Parachute) State() string              { return c.s.State }
func (c *Parachute) DeployAltitude() float64    { return c.s.DeployAltitude }
func (c *Parachute) DeployMinPressure() float64 { return c.s.DeployMinPressure }

func (c *Parachute) Deploy() error {
	if c.s.Deployed {
		return fmt.Errorf("parachute %s already deployed: %w", c.part, ErrInvalidState)
	}
	return c.part.submit(core.WriteRequest{Kind: core.WriteDeployParachute})
}

type Light struct {
	part *Part
	s    core.LightState
}

func (l *Light) Part() *Part         { return l.part }
func (l *Light) Active() bool        { return l.s.Active }
func (l *Light) Color() core.Vector3 { return l.s.Color }
func (l *Light) PowerUsage() float64 { return l.s.PowerUsage }

func (l *Light) SetActive(active bool) error {
	return l.part.submit(core.WriteRequest{Kind: core.WriteLightActive, Bool: active})
}

type CargoBay struct {
	part *Part
	s    core.CargoBayState
}

func (c *CargoBay) Part() *Part   { return c.part }
func (c *CargoBay) Open() bool    { return c.s.Open }
func (c *CargoBay) State() string { return c.s.State }

func (c *CargoBay) SetOpen(open bool) error {
	return c.part.submit(core.WriteRequest{Kind: core.WriteCargoBayOpen, Bool: open})
}

type Intake struct {
	part *Part
	s    core.IntakeState
}

func (i *Intake) Part() *Part    { return i.part }
func (i *Intake) Open() bool     { return i.s.Open }
func (i *Intake) Speed() float64 { return i.s.Speed }
func (i *Intake) Flow() float64  { return i.s.Flow }
func (i *Intake) Area() float64  { return i.s.Area }

func (i *Intake) SetOpen(open bool) error {
	return i.part.submit(core.WriteRequest{Kind: core.WriteIntakeOpen, Bool: open})
}

type SolarPanel struct {
	part *Part
	s    core.SolarPanelState
}

func (s *SolarPanel) Part() *Part          { return s.part }
func (s *SolarPanel) Deployable() bool     { return s.s.Deployable }
func (s *SolarPanel) Deployed() bool       { return s.s.Deployed }
func (s *SolarPanel) State() string        { return s.s.State }
func (s *SolarPanel) EnergyFlow() float64  { return s.s.EnergyFlow }
func (s *SolarPanel) SunExposure() float64 { return s.s.SunExposure }

func (s *SolarPanel) SetDeployed(deployed bool) error {
	if !s.s.Deployable {
		return fmt.Errorf("solar panel %s is not deployable: %w", s.part, ErrInvalidState)
	}
	return s.part.submit(core.WriteRequest{Kind: core.WriteSolarPanelDeployed, Bool: deployed})
}

type Radiator struct {
	part *Part
	s    core.RadiatorState
}

func (r *Radiator) Part() *Part      { return r.part }
func (r *Radiator) Deployable() bool { return r.s.Deployable }
func (r *Radiator) Deployed() bool   { return r.s.Deployed }
func (r *Radiator) State() string    { return r.s.State }

func (r *Radiator) SetDeployed(deployed bool) error {
	if !r.s.Deployable {
		return fmt.Errorf("radiator %s is not deployable: %w", r.part, ErrInvalidState)
	}
	return r.part.submit(core.WriteRequest{Kind: core.WriteRadiatorDeployed, Bool: deployed})
}

type LandingGear struct {
	part *Part
	s    core.LandingGearState
}

func (g *LandingGear) Part() *Part      { return g.part }
func (g *LandingGear) Deployable() bool { return g.s.Deployable }
func (g *LandingGear) Deployed() bool   { return g.s.Deployed }
func (g *LandingGear) State() string    { return g.s.State }
func (g *LandingGear) IsGrounded() bool { return g.s.IsGrounded }

func (g *LandingGear) SetDeployed(deployed bool) error {
	if !g.s.Deployable {
		return fmt.Errorf("landing gear %s is fixed: %w", g.part, ErrInvalidState)
	}
	return g.part.submit(core.WriteRequest{Kind: core.WriteLandingGearDeployed, Bool: deployed})
}

type LandingLeg struct {
	part *Part
	s    core.LandingLegState
}

func (l *LandingLeg) Part() *Part      { return l.part }
func (l *LandingLeg) Deployed() bool   { return l.s.Deployed }
func (l *LandingLeg) State() string    { return l.s.State }
func (l *LandingLeg) IsGrounded() bool { return l.s.IsGrounded }

func (l *LandingLeg) SetDeployed(deployed bool) error {
	return l.part.submit(core.WriteRequest{Kind: core.WriteLandingLegDeployed, Bool: deployed})
}

type ResourceHarvester struct {
	part *Part
	s    core.ResourceHarvesterState
}

func (h *ResourceHarvester) Part() *Part                     { return h.part }
func (h *ResourceHarvester) Deployed() bool                  { return h.s.Deployed }
func (h *ResourceHarvester) Active() bool                    { return h.s.Active }
func (h *ResourceHarvester) State() string                   { return h.s.State }
func (h *ResourceHarvester) ExtractionRate() float64         { return h.s.ExtractionRate }
func (h *ResourceHarvester) ThermalEfficiency() float64      { return h.s.ThermalEfficiency }
func (h *ResourceHarvester) CoreTemperature() float64        { return h.s.CoreTemperature }
func (h *ResourceHarvester) OptimumCoreTemperature() float64 { return h.s.OptimumCoreTemperature }

func (h *ResourceHarvester) SetDeployed(deployed bool) error {
	return h.part.submit(core.WriteRequest{Kind: core.WriteHarvesterDeployed, Bool: deployed})
}

// SetActive starts or stops the drill. It must be deployed first.
func (h *ResourceHarvester) SetActive(active bool) error {
	if active && !h.s.Deployed {
		return fmt.Errorf("harvester %s is not deployed: %w", h.part, ErrInvalidState)
	}
	return h.part.submit(core.WriteRequest{Kind: core.WriteHarvesterActive, Bool: active})
}

// ResourceConverter is a part holding one or more conversion recipes,
// addressed by index.
type ResourceConverter struct {
	part *Part
	s    core.ResourceConverterState
}

func (c *ResourceConverter) Part() *Part { return c.part }
func (c *ResourceConverter) Count() int  { return len(c.s.Converters) }

// Converter returns the recipe at index i.
func (c *ResourceConverter) Converter(i int) (core.ConverterState, error) {
	if i < 0 || i >= len(c.s.Converters) {
		return core.ConverterState{}, fmt.Errorf("converter index %d out of range [0,%d): %w", i, len(c.s.Converters), ErrInvalidState)
	}
	return c.s.Converters[i], nil
}

func (c *ResourceConverter) Start(i int) error { return c.setActive(i, true) }
func (c *ResourceConverter) Stop(i int) error  { return c.setActive(i, false) }

func (c *ResourceConverter) setActive(i int, active bool) error {
	if _, err := c.Converter(i); err != nil {
		return err
	}
	return c.part.submit(core.WriteRequest{Kind: core.WriteConverterActive, Index: i, Bool: active})
}

type Sensor struct {
	part *Part
	s    core.SensorState
}

func (s *Sensor) Part() *Part         { return s.part }
func (s *Sensor) Active() bool        { return s.s.Active }
func (s *Sensor) Value() string       { return s.s.Value }
func (s *Sensor) PowerUsage() float64 { return s.s.PowerUsage }

func (s *Sensor) SetActive(active bool) error {
	return s.part.submit(core.WriteRequest{Kind: core.WriteSensorActive, Bool: active})
}

type Fairing struct {
	part *Part
	s    core.FairingState
}

func (f *Fairing) Part() *Part      { return f.part }
func (f *Fairing) Jettisoned() bool { return f.s.Jettisoned }

func (f *Fairing) Jettison() error {
	if f.s.Jettisoned {
		return fmt.Errorf("fairing %s already jettisoned: %w", f.part, ErrInvalidState)
	}
	return f.part.submit(core.WriteRequest{Kind: core.WriteJettisonFairing})
}

type LaunchClamp struct {
	part *Part
	s    core.LaunchClampState
}

func (l *LaunchClamp) Part() *Part    { return l.part }
func (l *LaunchClamp) Released() bool { return l.s.Released }

func (l *LaunchClamp) Release() error {
	if l.s.Released {
		return fmt.Errorf("launch clamp %s already released: %w", l.part, ErrInvalidState)
	}
	return l.part.submit(core.WriteRequest{Kind: core.WriteReleaseClamp})
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
