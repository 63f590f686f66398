// Package simulation is a small deterministic stand-in for the game. It
// owns vessel readings, applies the write requests the service hands back
// and advances time, so the server can run and be tested without a game.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/pkg/core"
)

// standard gravity used by the rocket equation, m/s²
const g0 = 9.80665

// Dispatcher routes simulation calls to the service.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Simulator holds the state of every simulated vessel.
type Simulator struct {
	mu      sync.Mutex
	ut      float64
	vessels map[uint64]*core.VesselReading
	nextID  uint64
	removed []uint64
	active  uint64
	logger  *slog.Logger
}

func New(ut float64, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		ut:      ut,
		vessels: make(map[uint64]*core.VesselReading),
		nextID:  1,
		logger:  logger,
	}
}

// Add places a copy of r in the simulation at the current UT. A zero id is
// replaced with a fresh one. The first vessel added becomes active.
func (s *Simulator) Add(r core.VesselReading) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := clone(&r)
	if v.ID == 0 {
		v.ID = s.nextID
	}
	s.nextID = max(s.nextID, v.ID+1)
	v.UT = s.ut
	s.vessels[v.ID] = v
	if s.active == 0 {
		s.active = v.ID
	}
	return v.ID
}

// Vessel returns a copy of a vessel's reading.
func (s *Simulator) Vessel(id uint64) (core.VesselReading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vessels[id]
	if !ok {
		return core.VesselReading{}, false
	}
	return *clone(v), true
}

// Vessels returns the ids of all vessels in ascending order.
func (s *Simulator) Vessels() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.vessels))
	for id := range s.vessels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Simulator) UT() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ut
}

// Apply performs write requests in order. Requests for unknown vessels or
// parts are skipped.
func (s *Simulator) Apply(writes []core.WriteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if err := s.apply(w); err != nil {
			s.logger.Debug("Write request skipped", "kind", w.Kind, "vessel", w.VesselID, "part", w.PartID, "error", err)
		}
	}
}

func (s *Simulator) apply(w core.WriteRequest) error {
	v, ok := s.vessels[w.VesselID]
	if !ok {
		return fmt.Errorf("vessel %d not found", w.VesselID)
	}

	switch w.Kind {
	case core.WriteVesselName:
		v.Name = w.Text
		return nil
	case core.WriteVesselType:
		v.Type = core.VesselType(w.Text)
		return nil
	case core.WriteRCS:
		v.Control.RCS = w.Bool
		return nil
	case core.WriteThrottle:
		v.Control.Throttle = w.Number
		return nil
	case core.WriteRecover:
		switch v.Situation {
		case core.SituationPreLaunch, core.SituationLanded, core.SituationSplashed:
			s.remove(v.ID)
			return nil
		}
		return fmt.Errorf("vessel %d is %s", v.ID, v.Situation)
	}

	p := findPart(v, w.PartID)
	if p == nil {
		return fmt.Errorf("part %d not found", w.PartID)
	}
	switch w.Kind {
	case core.WriteEngineActive:
		if p.Engine != nil {
			p.Engine.Active = w.Bool
		}
	case core.WriteReactionWheelActive:
		if p.ReactionWheel != nil {
			p.ReactionWheel.Active = w.Bool
		}
	case core.WriteRCSEnabled:
		if p.RCS != nil {
			p.RCS.Enabled = w.Bool
		}
	case core.WriteDecouple:
		s.decouple(v, p.ID)
	case core.WriteDeployParachute:
		if p.Parachute != nil {
			p.Parachute.Deployed = true
			p.Parachute.State = "deployed"
		}
	case core.WriteLightActive:
		if p.Light != nil {
			p.Light.Active = w.Bool
		}
	case core.WriteCargoBayOpen:
		if p.CargoBay != nil {
			p.CargoBay.Open = w.Bool
		}
	case core.WriteIntakeOpen:
		if p.Intake != nil {
			p.Intake.Open = w.Bool
		}
	case core.WriteSolarPanelDeployed:
		if p.SolarPanel != nil && p.SolarPanel.Deployable {
			p.SolarPanel.Deployed = w.Bool
		}
	case core.WriteRadiatorDeployed:
		if p.Radiator != nil && p.Radiator.Deployable {
			p.Radiator.Deployed = w.Bool
		}
	case core.WriteLandingGearDeployed:
		if p.LandingGear != nil && p.LandingGear.Deployable {
			p.LandingGear.Deployed = w.Bool
		}
	case core.WriteLandingLegDeployed:
		if p.LandingLeg != nil {
			p.LandingLeg.Deployed = w.Bool
		}
	case core.WriteHarvesterDeployed:
		if p.ResourceHarvester != nil {
			p.ResourceHarvester.Deployed = w.Bool
		}
	case core.WriteHarvesterActive:
		if p.ResourceHarvester != nil {
			p.ResourceHarvester.Active = w.Bool
		}
	case core.WriteConverterActive:
		if p.ResourceConverter != nil && w.Index >= 0 && w.Index < len(p.ResourceConverter.Converters) {
			p.ResourceConverter.Converters[w.Index].Active = w.Bool
		}
	case core.WriteSensorActive:
		if p.Sensor != nil {
			p.Sensor.Active = w.Bool
		}
	case core.WriteJettisonFairing:
		if p.Fairing != nil {
			p.Fairing.Jettisoned = true
		}
	case core.WriteReleaseClamp:
		if p.LaunchClamp != nil {
			p.LaunchClamp.Released = true
		}
	default:
		return fmt.Errorf("unsupported write %q", w.Kind)
	}
	return nil
}

// decouple splits the decoupler and everything below it off into a new
// debris vessel. A decoupler at the root only fires.
func (s *Simulator) decouple(v *core.VesselReading, decouplerID uint64) {
	d := findPart(v, decouplerID)
	if d.Decoupler != nil {
		d.Decoupler.Decoupled = true
	}
	if d.ParentID == nil {
		return
	}

	below := subtree(v, decouplerID)
	debris := &core.VesselReading{
		ID:         s.nextID,
		Name:       v.Name + " Debris",
		Type:       core.VesselTypeDebris,
		Situation:  v.Situation,
		UT:         v.UT,
		LaunchTime: v.LaunchTime,
	}
	s.nextID++

	kept := v.Parts[:0:0]
	for _, p := range v.Parts {
		if below[p.ID] {
			debris.Parts = append(debris.Parts, p)
		} else {
			kept = append(kept, p)
		}
	}
	v.Parts = kept
	root := findPart(debris, decouplerID)
	root.ParentID = nil
	root.AttachMode = ""

	// fuel lines crossing the cut are severed
	var vLines, dLines []core.FuelLine
	for _, fl := range v.FuelLines {
		switch {
		case below[fl.From] && below[fl.To]:
			dLines = append(dLines, fl)
		case !below[fl.From] && !below[fl.To]:
			vLines = append(vLines, fl)
		}
	}
	v.FuelLines, debris.FuelLines = vLines, dLines

	s.vessels[debris.ID] = debris
	s.logger.Info("Stage separated", "vessel", v.ID, "debris", debris.ID, "parts", len(debris.Parts))
}

func (s *Simulator) remove(id uint64) {
	delete(s.vessels, id)
	s.removed = append(s.removed, id)
	if s.active == id {
		s.active = 0
	}
}

// Tick advances time by dt seconds and burns propellant for every engine
// producing thrust.
func (s *Simulator) Tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ut += dt
	for _, v := range s.vessels {
		v.UT = s.ut
		burn(v, dt)
	}
}

// burn drains the propellants of every running engine. Propellant is taken
// from all parts of the vessel in proportion to what each holds.
func burn(v *core.VesselReading, dt float64) {
	thrusting := false
	for i := range v.Parts {
		e := v.Parts[i].Engine
		if e == nil || !e.Active || !e.HasFuel || e.ISP <= 0 {
			continue
		}
		throttle := v.Control.Throttle
		if e.ThrottleLocked {
			throttle = 1
		}
		thrust := throttle * e.AvailableThrust
		if thrust <= 0 {
			continue
		}
		thrusting = true

		need := thrust / (e.ISP * g0) * dt
		if !drain(v, e.Propellants, need) {
			e.HasFuel = false
			e.AvailableThrust = 0
		}
	}
	if thrusting && v.Situation == core.SituationPreLaunch {
		v.Situation = core.SituationFlying
	}
}

// drain removes up to mass kg of the named resources. It reports whether the
// vessel held the full amount; when it did not, everything held is used up.
func drain(v *core.VesselReading, names []string, mass float64) bool {
	var held float64
	for i := range v.Parts {
		for _, r := range v.Parts[i].Resources {
			if slices.Contains(names, r.Name) {
				held += r.Mass()
			}
		}
	}
	if held <= 0 {
		return false
	}
	frac := min(mass/held, 1)
	for i := range v.Parts {
		res := v.Parts[i].Resources
		for j := range res {
			if slices.Contains(names, res[j].Name) {
				res[j].Amount -= res[j].Amount * frac
			}
		}
	}
	return held >= mass
}

// Step runs one simulation tick against the service: pending writes are
// drained and applied, time advances by dt, removed vessels are reported
// and every remaining vessel is sent as a fresh snapshot.
func (s *Simulator) Step(d Dispatcher, dt float64) error {
	res, err := d.Dispatch(dispatcher.Event{Command: ":SIM:WRITES:"})
	if err != nil {
		return fmt.Errorf("draining writes: %w", err)
	}
	writes, err := decodeWrites(res)
	if err != nil {
		return err
	}
	s.Apply(writes)
	s.Tick(dt)

	s.mu.Lock()
	removed := s.removed
	s.removed = nil
	snapshots := make([][]byte, 0, len(s.vessels))
	for _, id := range sortedIDs(s.vessels) {
		data, err := json.Marshal(s.vessels[id])
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("encoding vessel %d: %w", id, err)
		}
		snapshots = append(snapshots, data)
	}
	active := s.active
	s.mu.Unlock()

	for _, id := range removed {
		if _, err := d.Dispatch(dispatcher.Event{Command: ":SIM:REMOVE:", Args: []string{fmt.Sprint(id)}}); err != nil {
			return fmt.Errorf("removing vessel %d: %w", id, err)
		}
	}
	for _, data := range snapshots {
		if _, err := d.Dispatch(dispatcher.Event{Command: ":SIM:SNAPSHOT:", Args: []string{string(data)}}); err != nil {
			return fmt.Errorf("sending snapshot: %w", err)
		}
	}
	if active != 0 {
		if _, err := d.Dispatch(dispatcher.Event{Command: ":SIM:ACTIVE:", Args: []string{fmt.Sprint(active)}}); err != nil {
			return fmt.Errorf("setting active vessel: %w", err)
		}
	}
	return nil
}

// Run steps the simulation every period until ctx is done. warp scales
// simulation time against wall time.
func (s *Simulator) Run(ctx context.Context, d Dispatcher, period time.Duration, warp float64) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	dt := period.Seconds() * warp
	rate := []string{
		strconv.FormatFloat(1/period.Seconds(), 'f', 2, 64),
		strconv.FormatFloat(warp, 'f', -1, 64),
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Step(d, dt); err != nil {
				s.logger.Error("Simulation step failed", "error", err)
			}
			if _, err := d.Dispatch(dispatcher.Event{Command: ":SIM:RATE:", Args: rate}); err != nil {
				s.logger.Debug("Rate report dropped", "error", err)
			}
		}
	}
}

// decodeWrites accepts the drained writes either as typed requests or as
// their JSON form.
func decodeWrites(res any) ([]core.WriteRequest, error) {
	switch w := res.(type) {
	case nil:
		return nil, nil
	case []core.WriteRequest:
		return w, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding writes: %w", err)
	}
	var out []core.WriteRequest
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding writes: %w", err)
	}
	return out, nil
}

func findPart(v *core.VesselReading, id uint64) *core.PartReading {
	for i := range v.Parts {
		if v.Parts[i].ID == id {
			return &v.Parts[i]
		}
	}
	return nil
}

// subtree returns the ids of root and all of its descendants.
func subtree(v *core.VesselReading, root uint64) map[uint64]bool {
	children := make(map[uint64][]uint64)
	for _, p := range v.Parts {
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], p.ID)
		}
	}
	out := map[uint64]bool{root: true}
	stack := []uint64{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range children[id] {
			if !out[c] {
				out[c] = true
				stack = append(stack, c)
			}
		}
	}
	return out
}

func sortedIDs(m map[uint64]*core.VesselReading) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// clone deep-copies a reading through its JSON form.
func clone(r *core.VesselReading) *core.VesselReading {
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("simulation: cloning vessel %d: %v", r.ID, err))
	}
	var out core.VesselReading
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("simulation: cloning vessel %d: %v", r.ID, err))
	}
	return &out
}
