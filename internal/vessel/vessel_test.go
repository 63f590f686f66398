package vessel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/pkg/core"
)

type mockSink struct {
	writes []core.WriteRequest
}

func (m *mockSink) Submit(w core.WriteRequest) error {
	m.writes = append(m.writes, w)
	return nil
}

func ptr[T any](v T) *T { return &v }

func mods(names ...string) []core.ModuleReading {
	out := make([]core.ModuleReading, len(names))
	for i, n := range names {
		out[i] = core.ModuleReading{Name: n}
	}
	return out
}

// orbiter is a probe in orbit with one reaction wheel and two RCS blocks.
// Dry mass 3082 kg, carrying 260 l monopropellant, 180 l liquid fuel and
// 220 l oxidizer.
func orbiter() *core.VesselReading {
	return &core.VesselReading{
		ID:              7,
		Name:            "Vessel",
		Type:            core.VesselTypeShip,
		Situation:       core.SituationOrbiting,
		UT:              5000,
		LaunchTime:      1200,
		MomentOfInertia: core.Vector3{13411, 2219, 13366},
		InertiaTensor:   core.Tensor3{13411, 0, 0, 0, 2219, 0, 0, 0, 13366},
		Control:         core.ControlState{RCS: false, Throttle: 0},
		Parts: []core.PartReading{
			{ID: 1, Name: "probeCoreOcto", DryMass: 1082, Stage: -1,
				Modules:       mods("ModuleCommand", "ModuleReactionWheel"),
				ReactionWheel: &core.ReactionWheelState{Active: true, MaxTorque: core.Vector3{5000, 5000, 5000}},
				Resources:     []core.ResourceReading{{Name: "MonoPropellant", Amount: 260, Max: 260, Density: 4}}},
			{ID: 2, Name: "fuelTankSmall", DryMass: 1000, ParentID: ptr(uint64(1)), Stage: -1,
				Resources: []core.ResourceReading{
					{Name: "LiquidFuel", Amount: 180, Max: 180, Density: 5},
					{Name: "Oxidizer", Amount: 220, Max: 220, Density: 5},
				}},
			{ID: 3, Name: "RCSBlock", DryMass: 500, ParentID: ptr(uint64(2)), AttachMode: core.AttachRadial, Stage: -1,
				Modules: mods("ModuleRCSFX"),
				RCS:     &core.RCSState{Enabled: true, MaxThrust: 1000, MaxTorque: core.Vector3{3000, 2800, 3000}}},
			{ID: 4, Name: "RCSBlock", DryMass: 500, ParentID: ptr(uint64(2)), AttachMode: core.AttachRadial, Stage: -1,
				Modules: mods("ModuleRCSFX"),
				RCS:     &core.RCSState{Enabled: true, MaxThrust: 1000, MaxTorque: core.Vector3{3005, 2775, 3005}}},
		},
	}
}

type engineSpec struct {
	title     string
	maxThrust float64
	available float64
	isp       float64
	vacISP    float64
	mslISP    float64
}

// testbed matches the engine test vessel: one of each stock engine type.
var testbed = []engineSpec{
	{`IX-6315 "Dawn"`, 2000, 2000, 4200, 4200, 100},
	{`LV-T45 "Swivel"`, 200000, 200000, 320, 320, 270},
	{`LV-T30 "Reliant"`, 215000, 215000, 300, 300, 280},
	{`LV-N "Nerv"`, 60000, 60000, 800, 800, 185},
	{`O-10 "Puff"`, 20000, 20000, 250, 250, 120},
	{`RT-10 "Hammer"`, 0, 0, 195, 195, 170},
	{`LV-909 "Terrier"`, 60000, 0, 345, 345, 85},
	{`J-33 "Wheesley"`, 0, 0, 0, 0, 0},
}

func engineVessel(specs []engineSpec, active bool, throttle float64) *core.VesselReading {
	r := &core.VesselReading{
		ID:        9,
		Name:      "PartsEngine",
		Situation: core.SituationOrbiting,
		Control:   core.ControlState{Throttle: throttle},
		Parts:     []core.PartReading{{ID: 1, DryMass: 100, Stage: -1}},
	}
	for i, s := range specs {
		r.Parts = append(r.Parts, core.PartReading{
			ID: uint64(i + 2), Title: s.title, ParentID: ptr(uint64(1)), Stage: 0,
			Modules: mods("ModuleEnginesFX", "ModuleGimbal"),
			Engine: &core.EngineState{
				Active: active, CanShutdown: true, HasFuel: true,
				MaxThrust: s.maxThrust, AvailableThrust: s.available,
				ISP: s.isp, VacuumISP: s.vacISP, SeaLevelISP: s.mslISP,
				GimbalTorque: core.Vector3{s.available / 100, 0, s.available / 100},
			},
		})
	}
	return r
}

func mustVessel(t *testing.T, r *core.VesselReading, sink part.Sink) *Vessel {
	t.Helper()
	v, err := New(r, sink)
	require.NoError(t, err)
	return v
}

func TestNew_RejectsInvalidTree(t *testing.T) {
	r := orbiter()
	r.Parts[1].ParentID = ptr(uint64(77))

	_, err := New(r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, part.ErrMissingParent)
	assert.Contains(t, err.Error(), "vessel 7")
}

func TestNew_RejectsUnknownSituation(t *testing.T) {
	r := orbiter()
	r.Situation = "hovering"

	_, err := New(r, nil)
	assert.Error(t, err)
}

func TestNew_DefaultsType(t *testing.T) {
	r := orbiter()
	r.Type = ""

	v := mustVessel(t, r, nil)
	assert.Equal(t, core.VesselTypeShip, v.Type())
}

func TestVessel_Basics(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)

	assert.Equal(t, uint64(7), v.ID())
	assert.Equal(t, "Vessel", v.Name())
	assert.Equal(t, core.VesselTypeShip, v.Type())
	assert.Equal(t, core.SituationOrbiting, v.Situation())
	assert.Equal(t, "Vessel (7)", v.String())
	assert.Equal(t, core.Vector3{13411, 2219, 13366}, v.MomentOfInertia())
	assert.Equal(t, v.MomentOfInertia(), v.InertiaTensor().Diagonal())
	assert.Equal(t, 4, v.Parts().Len())
}

func TestVessel_Mass(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)

	assert.Equal(t, 3082.0, v.DryMass())
	assert.Equal(t, 3082.0+260*4+180*5+220*5, v.Mass())
	assert.Equal(t, 6122.0, v.Mass())

	var sum float64
	for _, p := range v.Parts().All() {
		sum += p.Mass()
	}
	assert.Equal(t, sum, v.Mass())
}

func TestVessel_ReactionWheelTorque(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)
	assert.Equal(t, core.Vector3{5000, 5000, 5000}, v.AvailableReactionWheelTorque())
	assert.Equal(t, core.Vector3{5000, 5000, 5000}, v.AvailableTorque())

	r := orbiter()
	r.Parts[0].ReactionWheel.Active = false
	off := mustVessel(t, r, nil)
	assert.Equal(t, core.Vector3{}, off.AvailableReactionWheelTorque())

	r.Parts[0].ReactionWheel.Active = true
	on := mustVessel(t, r, nil)
	assert.Equal(t, v.AvailableReactionWheelTorque(), on.AvailableReactionWheelTorque())
}

func TestVessel_RCSTorque(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)
	assert.Equal(t, core.Vector3{}, v.AvailableRCSTorque())

	r := orbiter()
	r.Control.RCS = true
	on := mustVessel(t, r, nil)
	assert.Equal(t, core.Vector3{6005, 5575, 6005}, on.AvailableRCSTorque())
	assert.Equal(t, core.Vector3{11005, 10575, 11005}, on.AvailableTorque())
}

func TestVessel_NoSourcesGiveZero(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)

	assert.Equal(t, core.Vector3{}, v.AvailableEngineTorque())
	assert.Equal(t, core.Vector3{}, v.AvailableControlSurfaceTorque())
	assert.Equal(t, 0.0, v.Thrust())
	assert.Equal(t, 0.0, v.AvailableThrust())
	assert.Equal(t, 0.0, v.MaxThrust())
	assert.Equal(t, 0.0, v.SpecificImpulse())
	assert.Equal(t, 0.0, v.VacuumSpecificImpulse())
	assert.Equal(t, 0.0, v.KerbinSeaLevelSpecificImpulse())
}

func TestCombinedISP_TwoEngines(t *testing.T) {
	v := mustVessel(t, engineVessel(testbed[1:3], true, 0), nil)

	want := (200000.0 + 215000.0) / (200000.0/320 + 215000.0/300)
	assert.InDelta(t, want, v.SpecificImpulse(), 1e-9)
	assert.InDelta(t, 309.8, v.SpecificImpulse(), 0.05)
	assert.InDelta(t, want, v.VacuumSpecificImpulse(), 1e-9)

	wantMSL := (200000.0 + 215000.0) / (200000.0/270 + 215000.0/280)
	assert.InDelta(t, wantMSL, v.KerbinSeaLevelSpecificImpulse(), 1e-9)
}

func combined(specs []engineSpec, isp func(engineSpec) float64) float64 {
	var thrust, flow float64
	for _, s := range specs {
		if s.maxThrust > 0 && isp(s) > 0 {
			thrust += s.maxThrust
			flow += s.maxThrust / isp(s)
		}
	}
	return thrust / flow
}

func TestVessel_Engines(t *testing.T) {
	var maxThrust, available float64
	for _, s := range testbed {
		maxThrust += s.maxThrust
		available += s.available
	}

	tests := []struct {
		name     string
		active   bool
		throttle float64
	}{
		{"inactive", false, 0},
		{"all idle", true, 0},
		{"throttle 0.3", true, 0.3},
		{"throttle 0.7", true, 0.7},
		{"full throttle", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustVessel(t, engineVessel(testbed, tt.active, tt.throttle), nil)

			if !tt.active {
				assert.Equal(t, 0.0, v.Thrust())
				assert.Equal(t, 0.0, v.AvailableThrust())
				assert.Equal(t, 0.0, v.MaxThrust())
				assert.Equal(t, 0.0, v.SpecificImpulse())
				assert.Equal(t, 0.0, v.VacuumSpecificImpulse())
				assert.Equal(t, 0.0, v.KerbinSeaLevelSpecificImpulse())
				assert.Equal(t, core.Vector3{}, v.AvailableEngineTorque())
				return
			}

			assert.InDelta(t, tt.throttle*available, v.Thrust(), 1e-6)
			assert.Equal(t, available, v.AvailableThrust())
			assert.Equal(t, maxThrust, v.MaxThrust())
			assert.InDelta(t, combined(testbed, func(s engineSpec) float64 { return s.isp }), v.SpecificImpulse(), 1e-9)
			assert.InDelta(t, combined(testbed, func(s engineSpec) float64 { return s.vacISP }), v.VacuumSpecificImpulse(), 1e-9)
			assert.InDelta(t, combined(testbed, func(s engineSpec) float64 { return s.mslISP }), v.KerbinSeaLevelSpecificImpulse(), 1e-9)

			torque := v.AvailableEngineTorque()
			if tt.throttle == 0 {
				assert.Equal(t, core.Vector3{}, torque)
			} else {
				assert.Greater(t, torque[0], 0.0)
				assert.Greater(t, torque[2], 0.0)
			}
		})
	}
}

func TestVessel_OneEngineActive(t *testing.T) {
	r := engineVessel(testbed, false, 0)
	r.Parts[4].Engine.Active = true // Nerv
	v := mustVessel(t, r, nil)

	assert.Equal(t, 0.0, v.Thrust())
	assert.Equal(t, 60000.0, v.AvailableThrust())
	assert.Equal(t, 60000.0, v.MaxThrust())
	assert.InDelta(t, 800, v.SpecificImpulse(), 1e-9)
	assert.InDelta(t, 185, v.KerbinSeaLevelSpecificImpulse(), 1e-9)
}

func TestVessel_FuelStarvedEngine(t *testing.T) {
	r := engineVessel(testbed[1:2], true, 1)
	r.Parts[1].Engine.HasFuel = false
	v := mustVessel(t, r, nil)

	assert.Equal(t, 0.0, v.Thrust())
	assert.Equal(t, core.Vector3{}, v.AvailableEngineTorque())
	assert.Equal(t, 200000.0, v.AvailableThrust())
}

func TestVessel_MET(t *testing.T) {
	r := orbiter()
	v := mustVessel(t, r, nil)
	assert.Equal(t, 3800.0, v.MET())
	assert.Less(t, v.MET(), v.UT())

	r.UT += 1
	later := mustVessel(t, r, nil)
	assert.Equal(t, v.MET()+1, later.MET())

	r.LaunchTime = r.UT + 10
	assert.Equal(t, 0.0, mustVessel(t, r, nil).MET())
}

func TestVessel_Recover(t *testing.T) {
	tests := []struct {
		situation   core.VesselSituation
		recoverable bool
	}{
		{core.SituationPreLaunch, true},
		{core.SituationLanded, true},
		{core.SituationSplashed, true},
		{core.SituationOrbiting, false},
		{core.SituationSubOrbital, false},
		{core.SituationEscaping, false},
		{core.SituationFlying, false},
		{core.SituationDocked, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.situation), func(t *testing.T) {
			r := orbiter()
			r.Situation = tt.situation
			sink := &mockSink{}
			v := mustVessel(t, r, sink)

			assert.Equal(t, tt.recoverable, v.Recoverable())
			err := v.Recover()
			if tt.recoverable {
				require.NoError(t, err)
				require.Len(t, sink.writes, 1)
				assert.Equal(t, core.WriteRequest{Kind: core.WriteRecover, VesselID: 7}, sink.writes[0])
			} else {
				assert.True(t, errors.Is(err, ErrNotRecoverable))
				assert.Empty(t, sink.writes)
			}
		})
	}
}

func TestVessel_Setters(t *testing.T) {
	sink := &mockSink{}
	v := mustVessel(t, orbiter(), sink)

	require.NoError(t, v.SetName("  Foo Bar Baz "))
	assert.ErrorIs(t, v.SetName("   "), ErrInvalidName)
	require.NoError(t, v.SetType(core.VesselTypeStation))
	assert.Error(t, v.SetType("submarine"))

	require.Len(t, sink.writes, 2)
	assert.Equal(t, core.WriteRequest{Kind: core.WriteVesselName, VesselID: 7, Text: "Foo Bar Baz"}, sink.writes[0])
	assert.Equal(t, core.WriteRequest{Kind: core.WriteVesselType, VesselID: 7, Text: "station"}, sink.writes[1])

	// Reads stay on the snapshot until the simulation reports the change.
	assert.Equal(t, "Vessel", v.Name())
}

func TestVessel_ReadOnly(t *testing.T) {
	v := mustVessel(t, orbiter(), nil)

	assert.ErrorIs(t, v.SetName("x"), part.ErrReadOnly)
	assert.ErrorIs(t, v.Control().SetRCS(true), part.ErrReadOnly)
}

func TestControl(t *testing.T) {
	sink := &mockSink{}
	r := orbiter()
	r.Control = core.ControlState{RCS: true, Throttle: 1.5}
	v := mustVessel(t, r, sink)
	c := v.Control()

	assert.True(t, c.RCS())
	assert.Equal(t, 1.0, c.Throttle())

	require.NoError(t, c.SetRCS(false))
	require.NoError(t, c.SetThrottle(0.25))
	require.NoError(t, c.SetThrottle(-2))
	assert.ErrorIs(t, c.SetThrottle(math.NaN()), ErrInvalidThrottle)
	assert.ErrorIs(t, c.SetThrottle(math.Inf(1)), ErrInvalidThrottle)

	require.Len(t, sink.writes, 3)
	assert.Equal(t, core.WriteRequest{Kind: core.WriteRCS, VesselID: 7, Bool: false}, sink.writes[0])
	assert.Equal(t, 0.25, sink.writes[1].Number)
	assert.Equal(t, 0.0, sink.writes[2].Number)
}

func TestVessel_Idempotent(t *testing.T) {
	r := engineVessel(testbed, true, 0.5)
	r.Control.RCS = true
	v := mustVessel(t, r, nil)

	now := time.Unix(1700000000, 0)
	first := v.Sample("f1", now)
	second := v.Sample("f1", now)
	assert.Equal(t, first, second)
	assert.Equal(t, v.AvailableTorque(), v.AvailableTorque())
	assert.Equal(t, v.SpecificImpulse(), v.SpecificImpulse())
}

func TestVessel_Sample(t *testing.T) {
	r := orbiter()
	r.Control.RCS = true
	v := mustVessel(t, r, nil)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := v.Sample("flight-1", now)

	assert.Equal(t, "flight-1", s.FlightID)
	assert.Equal(t, uint64(7), s.VesselID)
	assert.Equal(t, now, s.Time)
	assert.Equal(t, 5000.0, s.UT)
	assert.Equal(t, 3800.0, s.MET)
	assert.Equal(t, core.SituationOrbiting, s.Situation)
	assert.Equal(t, 6122.0, s.Mass)
	assert.Equal(t, 3082.0, s.DryMass)
	assert.Equal(t, core.Vector3{6005, 5575, 6005}, s.RCSTorque)
	assert.True(t, s.RCS)
	assert.Equal(t, 4, s.PartCount)
	assert.Equal(t, 0, s.StageCount)
	assert.Equal(t, map[int]float64{-1: 6122}, s.StageMass)
}
