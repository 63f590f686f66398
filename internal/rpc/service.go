// Package rpc exposes the space center, its vessels and their parts as
// dispatcher commands. Simulation-facing commands ingest snapshots and hand
// back pending writes; client-facing commands read the latest snapshot or
// queue writes against it.
package rpc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/commands"
	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/parser"
	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/internal/util"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/core"
)

var (
	ErrVesselNotFound = errors.New("vessel not found")
	ErrPartNotFound   = errors.New("part not found")
	ErrFacetNotFound  = errors.New("facet not found")
	ErrBadArgs        = errors.New("bad arguments")
)

// Observer is told about every snapshot the service ingests and every
// vessel it drops. Calls happen on the ingesting goroutine, after the cache
// has been updated.
type Observer interface {
	VesselUpdated(v *vessel.Vessel, created bool)
	VesselRemoved(id uint64, ut float64)
}

// StatusFunc reports service health for the :STATUS: command.
type StatusFunc func() any

// Dependencies holds everything the command handlers need.
type Dependencies struct {
	Cache  *cache.VesselCache
	Writes *commands.Buffer // nil makes every vessel read-only
	Parser *parser.Parser
	Logger *slog.Logger
	Status StatusFunc
}

// Service implements the command handlers.
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	observers []Observer
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewVesselCache()
	}
	return &Service{deps: deps}
}

// Observe subscribes o to snapshot ingestion.
func (s *Service) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) Cache() *cache.VesselCache { return s.deps.Cache }

func (s *Service) snapshotObservers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Observer(nil), s.observers...)
}

func (s *Service) sink() part.Sink {
	if s.deps.Writes == nil {
		return nil
	}
	return s.deps.Writes
}

// RegisterHandlers registers every command with d.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	ro := dispatcher.ReadOnly()

	// Simulation side. Snapshots must be applied before the next drain, so
	// only the rate report is buffered.
	d.Register(":SIM:SNAPSHOT:", s.handleSnapshot)
	d.Register(":SIM:REMOVE:", s.handleRemove, dispatcher.Logged())
	d.Register(":SIM:WRITES:", s.handleDrainWrites)
	d.Register(":SIM:ACTIVE:", s.handleSetActive, dispatcher.Logged())
	d.Register(":SIM:RATE:", s.handleRate, dispatcher.Buffered(rateQueueSize))

	d.Register(":SPACECENTER:UT:", s.handleUT, ro)
	d.Register(":SPACECENTER:VESSELS:", s.handleVessels, ro)
	d.Register(":SPACECENTER:ACTIVE:VESSEL:", s.handleActiveVessel, ro)
	d.Register(":STATUS:", s.handleStatus, ro)

	d.Register(":VESSEL:NAME:", s.vesselRead(func(v *vessel.Vessel) any { return v.Name() }), ro)
	d.Register(":VESSEL:TYPE:", s.vesselRead(func(v *vessel.Vessel) any { return v.Type() }), ro)
	d.Register(":VESSEL:SITUATION:", s.vesselRead(func(v *vessel.Vessel) any { return v.Situation() }), ro)
	d.Register(":VESSEL:MET:", s.vesselNumber((*vessel.Vessel).MET), ro)
	d.Register(":VESSEL:RECOVERABLE:", s.vesselRead(func(v *vessel.Vessel) any { return v.Recoverable() }), ro)
	d.Register(":VESSEL:MASS:", s.vesselNumber((*vessel.Vessel).Mass), ro)
	d.Register(":VESSEL:DRY:MASS:", s.vesselNumber((*vessel.Vessel).DryMass), ro)
	d.Register(":VESSEL:MOMENT:OF:INERTIA:", s.vesselRead(func(v *vessel.Vessel) any { return finiteVector(v.MomentOfInertia()) }), ro)
	d.Register(":VESSEL:INERTIA:TENSOR:", s.vesselRead(func(v *vessel.Vessel) any { return finiteTensor(v.InertiaTensor()) }), ro)
	d.Register(":VESSEL:TORQUE:", s.vesselTorque((*vessel.Vessel).AvailableTorque), ro)
	d.Register(":VESSEL:TORQUE:REACTION:WHEEL:", s.vesselTorque((*vessel.Vessel).AvailableReactionWheelTorque), ro)
	d.Register(":VESSEL:TORQUE:RCS:", s.vesselTorque((*vessel.Vessel).AvailableRCSTorque), ro)
	d.Register(":VESSEL:TORQUE:ENGINE:", s.vesselTorque((*vessel.Vessel).AvailableEngineTorque), ro)
	d.Register(":VESSEL:TORQUE:CONTROL:SURFACE:", s.vesselTorque((*vessel.Vessel).AvailableControlSurfaceTorque), ro)
	d.Register(":VESSEL:THRUST:", s.vesselNumber((*vessel.Vessel).Thrust), ro)
	d.Register(":VESSEL:AVAILABLE:THRUST:", s.vesselNumber((*vessel.Vessel).AvailableThrust), ro)
	d.Register(":VESSEL:MAX:THRUST:", s.vesselNumber((*vessel.Vessel).MaxThrust), ro)
	d.Register(":VESSEL:ISP:", s.vesselNumber((*vessel.Vessel).SpecificImpulse), ro)
	d.Register(":VESSEL:VACUUM:ISP:", s.vesselNumber((*vessel.Vessel).VacuumSpecificImpulse), ro)
	d.Register(":VESSEL:SEA:LEVEL:ISP:", s.vesselNumber((*vessel.Vessel).KerbinSeaLevelSpecificImpulse), ro)
	d.Register(":VESSEL:SUMMARY:", s.vesselRead(func(v *vessel.Vessel) any { return summarize(v) }), ro)

	d.Register(":VESSEL:SET:NAME:", s.handleSetName, dispatcher.Logged())
	d.Register(":VESSEL:SET:TYPE:", s.handleSetType, dispatcher.Logged())
	d.Register(":VESSEL:RECOVER:", s.handleRecover, dispatcher.Logged())

	d.Register(":CONTROL:RCS:", s.vesselRead(func(v *vessel.Vessel) any { return v.Control().RCS() }), ro)
	d.Register(":CONTROL:THROTTLE:", s.vesselNumber(func(v *vessel.Vessel) float64 { return v.Control().Throttle() }), ro)
	d.Register(":CONTROL:SET:RCS:", s.handleSetRCS, dispatcher.Logged())
	d.Register(":CONTROL:SET:THROTTLE:", s.handleSetThrottle, dispatcher.Logged())

	d.Register(":PARTS:ALL:", s.partsQuery(func(t *part.Tree, _ []string) ([]*part.Part, error) { return t.All(), nil }), ro)
	d.Register(":PARTS:ROOT:", s.vesselRead(func(v *vessel.Vessel) any { return refOf(v.Parts().Root()) }), ro)
	d.Register(":PARTS:WITH:TITLE:", s.partsQuery(s.withString((*part.Tree).WithTitle, "title")), ro)
	d.Register(":PARTS:WITH:NAME:", s.partsQuery(s.withString((*part.Tree).WithName, "name")), ro)
	d.Register(":PARTS:WITH:MODULE:", s.partsQuery(s.withString((*part.Tree).WithModule, "module")), ro)
	d.Register(":PARTS:IN:STAGE:", s.partsQuery(s.withInt((*part.Tree).InStage, "stage")), ro)
	d.Register(":PARTS:IN:DECOUPLE:STAGE:", s.partsQuery(s.withInt((*part.Tree).InDecoupleStage, "decouple stage")), ro)
	d.Register(":PARTS:FACET:", s.partsQuery(s.withCategory), ro)

	d.Register(":PART:INFO:", s.partRead(func(p *part.Part) (any, error) { return partInfo(p), nil }), ro)
	d.Register(":PART:MODULES:", s.partRead(func(p *part.Part) (any, error) { return moduleNames(p), nil }), ro)
	d.Register(":ENGINE:INFO:", s.partRead(engineFacetInfo), ro)
	d.Register(":REACTION:WHEEL:INFO:", s.partRead(reactionWheelFacetInfo), ro)
	d.Register(":ENGINE:SET:ACTIVE:", s.handleEngineSetActive, dispatcher.Logged())
	d.Register(":REACTION:WHEEL:SET:ACTIVE:", s.handleReactionWheelSetActive, dispatcher.Logged())
	d.Register(":PART:ACTION:", s.handlePartAction, dispatcher.Logged())
}

// clientArgs strips the quoting some clients wrap arguments in.
func clientArgs(e dispatcher.Event) []string {
	return util.CleanArgs(e.Args)
}

func badArgs(err error) error {
	return fmt.Errorf("%w: %v", ErrBadArgs, err)
}

func (s *Service) lookupVessel(args []string) (*vessel.Vessel, error) {
	id, err := s.deps.Parser.ParseID(args, 0, "vessel id")
	if err != nil {
		return nil, badArgs(err)
	}
	v, ok := s.deps.Cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrVesselNotFound, id)
	}
	return v, nil
}

func (s *Service) lookupPart(args []string) (*part.Part, error) {
	v, err := s.lookupVessel(args)
	if err != nil {
		return nil, err
	}
	id, err := s.deps.Parser.ParseID(args, 1, "part id")
	if err != nil {
		return nil, badArgs(err)
	}
	p, ok := v.Parts().BySimID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d on vessel %d", ErrPartNotFound, id, v.ID())
	}
	return p, nil
}

func (s *Service) vesselRead(fn func(*vessel.Vessel) any) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		v, err := s.lookupVessel(clientArgs(e))
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	}
}

func (s *Service) vesselNumber(fn func(*vessel.Vessel) float64) dispatcher.HandlerFunc {
	return s.vesselRead(func(v *vessel.Vessel) any { return util.Finite(fn(v)) })
}

func (s *Service) partRead(fn func(*part.Part) (any, error)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		p, err := s.lookupPart(clientArgs(e))
		if err != nil {
			return nil, err
		}
		return fn(p)
	}
}

func (s *Service) vesselTorque(fn func(*vessel.Vessel) core.Vector3) dispatcher.HandlerFunc {
	return s.vesselRead(func(v *vessel.Vessel) any { return finiteVector(fn(v)) })
}
