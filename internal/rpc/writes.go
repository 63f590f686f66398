package rpc

import (
	"fmt"
	"strings"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/internal/vessel"
)

// Mutating commands queue a write request and reply true once it is
// accepted. The change shows up in the next snapshot, not in this one.

func (s *Service) vesselWrite(e dispatcher.Event, fn func(v *vessel.Vessel, args []string) error) (any, error) {
	args := clientArgs(e)
	v, err := s.lookupVessel(args)
	if err != nil {
		return nil, err
	}
	if err := fn(v, args); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Service) partWrite(e dispatcher.Event, fn func(p *part.Part, args []string) error) (any, error) {
	args := clientArgs(e)
	p, err := s.lookupPart(args)
	if err != nil {
		return nil, err
	}
	if err := fn(p, args); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Service) handleSetName(e dispatcher.Event) (any, error) {
	return s.vesselWrite(e, func(v *vessel.Vessel, args []string) error {
		name, err := s.deps.Parser.ParseString(args, 1, "name")
		if err != nil {
			return badArgs(err)
		}
		return v.SetName(name)
	})
}

func (s *Service) handleSetType(e dispatcher.Event) (any, error) {
	return s.vesselWrite(e, func(v *vessel.Vessel, args []string) error {
		t, err := s.deps.Parser.ParseVesselType(args, 1)
		if err != nil {
			return badArgs(err)
		}
		return v.SetType(t)
	})
}

func (s *Service) handleRecover(e dispatcher.Event) (any, error) {
	return s.vesselWrite(e, func(v *vessel.Vessel, _ []string) error {
		return v.Recover()
	})
}

func (s *Service) handleSetRCS(e dispatcher.Event) (any, error) {
	return s.vesselWrite(e, func(v *vessel.Vessel, args []string) error {
		on, err := s.deps.Parser.ParseBool(args, 1, "rcs")
		if err != nil {
			return badArgs(err)
		}
		return v.Control().SetRCS(on)
	})
}

func (s *Service) handleSetThrottle(e dispatcher.Event) (any, error) {
	return s.vesselWrite(e, func(v *vessel.Vessel, args []string) error {
		t, err := s.deps.Parser.ParseFloat(args, 1, "throttle")
		if err != nil {
			return badArgs(err)
		}
		return v.Control().SetThrottle(t)
	})
}

func (s *Service) handleEngineSetActive(e dispatcher.Event) (any, error) {
	return s.partWrite(e, func(p *part.Part, args []string) error {
		eng := p.Engine()
		if eng == nil {
			return fmt.Errorf("%w: part %d has no engine", ErrFacetNotFound, p.SimID())
		}
		active, err := s.deps.Parser.ParseBool(args, 2, "active")
		if err != nil {
			return badArgs(err)
		}
		return eng.SetActive(active)
	})
}

func (s *Service) handleReactionWheelSetActive(e dispatcher.Event) (any, error) {
	return s.partWrite(e, func(p *part.Part, args []string) error {
		w := p.ReactionWheel()
		if w == nil {
			return fmt.Errorf("%w: part %d has no reaction wheel", ErrFacetNotFound, p.SimID())
		}
		active, err := s.deps.Parser.ParseBool(args, 2, "active")
		if err != nil {
			return badArgs(err)
		}
		return w.SetActive(active)
	})
}

// partAction performs one named facet action. args holds the action's own
// arguments, after vessel id, part id and action name.
type partAction struct {
	category part.Category
	run      func(s *Service, p *part.Part, args []string) error
}

func toggle(set func(p *part.Part, on bool) error) func(*Service, *part.Part, []string) error {
	return func(s *Service, p *part.Part, args []string) error {
		on, err := s.deps.Parser.ParseBool(args, 0, "value")
		if err != nil {
			return badArgs(err)
		}
		return set(p, on)
	}
}

func indexed(run func(p *part.Part, i int) error) func(*Service, *part.Part, []string) error {
	return func(s *Service, p *part.Part, args []string) error {
		i, err := s.deps.Parser.ParseInt(args, 0, "index")
		if err != nil {
			return badArgs(err)
		}
		return run(p, i)
	}
}

func once(run func(p *part.Part) error) func(*Service, *part.Part, []string) error {
	return func(_ *Service, p *part.Part, _ []string) error { return run(p) }
}

var partActions = map[string]partAction{
	"engine_active":         {part.CategoryEngine, toggle(func(p *part.Part, on bool) error { return p.Engine().SetActive(on) })},
	"reaction_wheel_active": {part.CategoryReactionWheel, toggle(func(p *part.Part, on bool) error { return p.ReactionWheel().SetActive(on) })},
	"rcs_enabled":           {part.CategoryRCS, toggle(func(p *part.Part, on bool) error { return p.RCS().SetEnabled(on) })},
	"decouple":              {part.CategoryDecoupler, once(func(p *part.Part) error { return p.Decoupler().Decouple() })},
	"undock":                {part.CategoryDockingPort, once(func(p *part.Part) error { return p.DockingPort().Undock() })},
	"deploy_parachute":      {part.CategoryParachute, once(func(p *part.Part) error { return p.Parachute().Deploy() })},
	"light_active":          {part.CategoryLight, toggle(func(p *part.Part, on bool) error { return p.Light().SetActive(on) })},
	"cargo_bay_open":        {part.CategoryCargoBay, toggle(func(p *part.Part, on bool) error { return p.CargoBay().SetOpen(on) })},
	"intake_open":           {part.CategoryIntake, toggle(func(p *part.Part, on bool) error { return p.Intake().SetOpen(on) })},
	"solar_panel_deployed":  {part.CategorySolarPanel, toggle(func(p *part.Part, on bool) error { return p.SolarPanel().SetDeployed(on) })},
	"radiator_deployed":     {part.CategoryRadiator, toggle(func(p *part.Part, on bool) error { return p.Radiator().SetDeployed(on) })},
	"landing_gear_deployed": {part.CategoryLandingGear, toggle(func(p *part.Part, on bool) error { return p.LandingGear().SetDeployed(on) })},
	"landing_leg_deployed":  {part.CategoryLandingLeg, toggle(func(p *part.Part, on bool) error { return p.LandingLeg().SetDeployed(on) })},
	"harvester_deployed":    {part.CategoryResourceHarvester, toggle(func(p *part.Part, on bool) error { return p.ResourceHarvester().SetDeployed(on) })},
	"harvester_active":      {part.CategoryResourceHarvester, toggle(func(p *part.Part, on bool) error { return p.ResourceHarvester().SetActive(on) })},
	"converter_start":       {part.CategoryResourceConverter, indexed(func(p *part.Part, i int) error { return p.ResourceConverter().Start(i) })},
	"converter_stop":        {part.CategoryResourceConverter, indexed(func(p *part.Part, i int) error { return p.ResourceConverter().Stop(i) })},
	"sensor_active":         {part.CategorySensor, toggle(func(p *part.Part, on bool) error { return p.Sensor().SetActive(on) })},
	"jettison_fairing":      {part.CategoryFairing, once(func(p *part.Part) error { return p.Fairing().Jettison() })},
	"release_clamp":         {part.CategoryLaunchClamp, once(func(p *part.Part) error { return p.LaunchClamp().Release() })},
}

// PartActions lists the action names :PART:ACTION: accepts.
func PartActions() []string {
	out := make([]string, 0, len(partActions))
	for name := range partActions {
		out = append(out, name)
	}
	return out
}

// handlePartAction runs a facet action: args are vessel id, part id, action
// name and the action's arguments.
func (s *Service) handlePartAction(e dispatcher.Event) (any, error) {
	return s.partWrite(e, func(p *part.Part, args []string) error {
		name, err := s.deps.Parser.ParseString(args, 2, "action")
		if err != nil {
			return badArgs(err)
		}
		action, ok := partActions[strings.ToLower(name)]
		if !ok {
			return badArgs(fmt.Errorf("unknown part action %q", name))
		}
		if !p.Categories().Has(action.category) {
			return fmt.Errorf("%w: part %d has no %s", ErrFacetNotFound, p.SimID(), action.category)
		}
		return action.run(s, p, args[3:])
	})
}
