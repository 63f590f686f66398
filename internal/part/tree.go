package part

import (
	"errors"
	"fmt"

	"github.com/krpc/spacecenter/pkg/core"
)

var (
	ErrNoRoot        = errors.New("part tree has no root")
	ErrMultipleRoots = errors.New("part tree has more than one root")
	ErrDuplicatePart = errors.New("duplicate part id")
	ErrMissingParent = errors.New("parent part not found")
	ErrCycle         = errors.New("attachment cycle")
)

// Tree is the arena of parts of one vessel. The attachment tree and the
// fuel-line graph are kept as separate adjacency structures over part IDs.
// Parts are stored in pre-order from the root.
type Tree struct {
	vesselID uint64
	control  core.ControlState
	sink     Sink

	parts []*Part
	bySim map[uint64]ID

	fuelIn  map[ID][]ID
	fuelOut map[ID][]ID

	byCategory [numCategories][]ID
}

// NewTree builds the part tree of a vessel reading. Structurally invalid
// readings are rejected. Fuel lines naming unknown parts are dropped.
// sink may be nil for a read-only tree.
func NewTree(r *core.VesselReading, sink Sink) (*Tree, error) {
	t := &Tree{
		vesselID: r.ID,
		control:  r.Control,
		sink:     sink,
		bySim:    make(map[uint64]ID, len(r.Parts)),
		fuelIn:   make(map[ID][]ID),
		fuelOut:  make(map[ID][]ID),
	}

	index := make(map[uint64]int, len(r.Parts))
	children := make(map[uint64][]int, len(r.Parts))
	root := -1
	for i, pr := range r.Parts {
		if _, dup := index[pr.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePart, pr.ID)
		}
		index[pr.ID] = i
		if pr.ParentID == nil {
			if root >= 0 {
				return nil, fmt.Errorf("%w: %d and %d", ErrMultipleRoots, r.Parts[root].ID, pr.ID)
			}
			root = i
			continue
		}
		children[*pr.ParentID] = append(children[*pr.ParentID], i)
	}
	if root < 0 {
		return nil, ErrNoRoot
	}
	for _, pr := range r.Parts {
		if pr.ParentID == nil {
			continue
		}
		if _, ok := index[*pr.ParentID]; !ok {
			return nil, fmt.Errorf("%w: part %d references %d", ErrMissingParent, pr.ID, *pr.ParentID)
		}
	}

	// Depth-first from the root. Every non-root part has exactly one existing
	// parent, so anything left unvisited sits on a cycle.
	t.parts = make([]*Part, 0, len(r.Parts))
	type frame struct {
		reading int
		parent  ID
	}
	stack := []frame{{reading: root, parent: NoPart}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := ID(len(t.parts))
		p := newPart(t, id, r.Parts[f.reading])
		p.parent = f.parent
		if f.parent != NoPart {
			parent := t.parts[f.parent]
			parent.children = append(parent.children, id)
		}
		t.parts = append(t.parts, p)
		t.bySim[p.SimID()] = id

		kids := children[p.SimID()]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{reading: kids[i], parent: id})
		}
	}
	if len(t.parts) != len(r.Parts) {
		return nil, fmt.Errorf("%w: %d of %d parts unreachable from root", ErrCycle, len(r.Parts)-len(t.parts), len(r.Parts))
	}

	for _, fl := range r.FuelLines {
		from, ok1 := t.bySim[fl.From]
		to, ok2 := t.bySim[fl.To]
		if !ok1 || !ok2 {
			continue
		}
		t.fuelOut[from] = append(t.fuelOut[from], to)
		t.fuelIn[to] = append(t.fuelIn[to], from)
	}

	for _, p := range t.parts {
		for _, c := range p.categories.Slice() {
			t.byCategory[c] = append(t.byCategory[c], p.id)
		}
	}

	return t, nil
}

func (t *Tree) resolve(ids []ID) []*Part {
	out := make([]*Part, len(ids))
	for i, id := range ids {
		out[i] = t.parts[id]
	}
	return out
}

// VesselID returns the simulation id of the owning vessel.
func (t *Tree) VesselID() uint64 { return t.vesselID }

// Control returns the pilot input the tree was built with.
func (t *Tree) Control() core.ControlState { return t.control }

// Len returns the number of parts.
func (t *Tree) Len() int { return len(t.parts) }

// Root returns the unique parentless part.
func (t *Tree) Root() *Part { return t.parts[0] }

// Part returns the part with the given handle, or nil.
func (t *Tree) Part(id ID) *Part {
	if id < 0 || int(id) >= len(t.parts) {
		return nil
	}
	return t.parts[id]
}

// BySimID looks a part up by its simulation id.
func (t *Tree) BySimID(id uint64) (*Part, bool) {
	h, ok := t.bySim[id]
	if !ok {
		return nil, false
	}
	return t.parts[h], true
}

// All returns every part in pre-order from the root.
func (t *Tree) All() []*Part {
	out := make([]*Part, len(t.parts))
	copy(out, t.parts)
	return out
}

// Children returns the direct children of p.
func (t *Tree) Children(p *Part) []*Part {
	return p.Children()
}

// Walk visits p and its subtree in pre-order, stopping early if fn returns false.
func (t *Tree) Walk(p *Part, fn func(*Part) bool) {
	stack := []ID{p.id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur := t.parts[id]
		if !fn(cur) {
			return
		}
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}

func (t *Tree) filter(keep func(*Part) bool) []*Part {
	var out []*Part
	for _, p := range t.parts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// WithTitle returns all parts whose title matches exactly.
func (t *Tree) WithTitle(title string) []*Part {
	return t.filter(func(p *Part) bool { return p.Title() == title })
}

// WithName returns all parts whose internal name matches exactly.
func (t *Tree) WithName(name string) []*Part {
	return t.filter(func(p *Part) bool { return p.Name() == name })
}

// WithModule returns all parts carrying the named module tag.
func (t *Tree) WithModule(module string) []*Part {
	return t.filter(func(p *Part) bool { return p.HasModule(module) })
}

// InStage returns the parts whose own action fires in the given stage.
func (t *Tree) InStage(stage int) []*Part {
	return t.filter(func(p *Part) bool { return p.Stage() == stage })
}

// InDecoupleStage returns the parts that separate in the given stage.
func (t *Tree) InDecoupleStage(stage int) []*Part {
	return t.filter(func(p *Part) bool { return p.DecoupleStage() == stage })
}

// WithCategory returns the parts exposing the given capability.
func (t *Tree) WithCategory(c Category) []*Part {
	if c >= numCategories {
		return nil
	}
	return t.resolve(t.byCategory[c])
}

func facets[F any](t *Tree, c Category, get func(*Part) F) []F {
	ids := t.byCategory[c]
	out := make([]F, len(ids))
	for i, id := range ids {
		out[i] = get(t.parts[id])
	}
	return out
}

func (t *Tree) Engines() []*Engine {
	return facets(t, CategoryEngine, (*Part).Engine)
}

func (t *Tree) ReactionWheels() []*ReactionWheel {
	return facets(t, CategoryReactionWheel, (*Part).ReactionWheel)
}

func (t *Tree) RCS() []*RCS {
	return facets(t, CategoryRCS, (*Part).RCS)
}

func (t *Tree) ControlSurfaces() []*ControlSurface {
	return facets(t, CategoryControlSurface, (*Part).ControlSurface)
}

func (t *Tree) Decouplers() []*Decoupler {
	return facets(t, CategoryDecoupler, (*Part).Decoupler)
}

func (t *Tree) DockingPorts() []*DockingPort {
	return facets(t, CategoryDockingPort, (*Part).DockingPort)
}

func (t *Tree) Parachutes() []*Parachute {
	return facets(t, CategoryParachute, (*Part).Parachute)
}

func (t *Tree) Lights() []*Light {
	return facets(t, CategoryLight, (*Part).Light)
}

func (t *Tree) CargoBays() []*CargoBay {
	return facets(t, CategoryCargoBay, (*Part).CargoBay)
}

func (t *Tree) Intakes() []*Intake {
	return facets(t, CategoryIntake, (*Part).Intake)
}

func (t *Tree) SolarPanels() []*SolarPanel {
	return facets(t, CategorySolarPanel, (*Part).SolarPanel)
}

func (t *Tree) Radiators() []*Radiator {
	return facets(t, CategoryRadiator, (*Part).Radiator)
}

func (t *Tree) LandingGear() []*LandingGear {
	return facets(t, CategoryLandingGear, (*Part).LandingGear)
}

func (t *Tree) LandingLegs() []*LandingLeg {
	return facets(t, CategoryLandingLeg, (*Part).LandingLeg)
}

func (t *Tree) ResourceHarvesters() []*ResourceHarvester {
	return facets(t, CategoryResourceHarvester, (*Part).ResourceHarvester)
}

func (t *Tree) ResourceConverters() []*ResourceConverter {
	return facets(t, CategoryResourceConverter, (*Part).ResourceConverter)
}

func (t *Tree) Sensors() []*Sensor {
	return facets(t, CategorySensor, (*Part).Sensor)
}

func (t *Tree) Fairings() []*Fairing {
	return facets(t, CategoryFairing, (*Part).Fairing)
}

func (t *Tree) LaunchClamps() []*LaunchClamp {
	return facets(t, CategoryLaunchClamp, (*Part).LaunchClamp)
}

// FuelLinesFrom returns the parts with fuel lines running into p.
func (t *Tree) FuelLinesFrom(p *Part) []*Part { return p.FuelLinesFrom() }

// FuelLinesTo returns the parts p feeds through fuel lines.
func (t *Tree) FuelLinesTo(p *Part) []*Part { return p.FuelLinesTo() }

// SetDecoupleStages assigns decouple stages by part handle. It is called
// once by the stage resolver before the tree is shared.
func (t *Tree) SetDecoupleStages(stages []int) error {
	if len(stages) != len(t.parts) {
		return fmt.Errorf("decouple stages: got %d values for %d parts", len(stages), len(t.parts))
	}
	for i, s := range stages {
		t.parts[i].decoupleStage = s
	}
	return nil
}
