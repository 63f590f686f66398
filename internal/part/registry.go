package part

// FuelLineModule marks a part as a fuel line connector.
const FuelLineModule = "CModuleFuelLine"

// rule matches a module tag set. A set matches when it holds at least one
// of anyOf (if given), all of allOf, and none of noneOf.
type rule struct {
	category Category
	anyOf    []string
	allOf    []string
	noneOf   []string
}

// rules maps module tags to categories. Several rules may share a category;
// the category is present if any of them match.
var rules = []rule{
	{category: CategoryCargoBay, anyOf: []string{"ModuleCargoBay"}},
	{category: CategoryControlSurface, anyOf: []string{"ModuleControlSurface", "ModuleAeroSurface"}},
	{category: CategoryDecoupler, anyOf: []string{"ModuleDecouple", "ModuleAnchoredDecoupler"}},
	{category: CategoryDockingPort, anyOf: []string{"ModuleDockingNode"}},
	{category: CategoryEngine, anyOf: []string{"ModuleEngines", "ModuleEnginesFX"}},
	{category: CategoryFairing, anyOf: []string{"ModuleProceduralFairing"}},
	{category: CategoryIntake, anyOf: []string{"ModuleResourceIntake"}},
	{category: CategoryLandingGear, anyOf: []string{"ModuleLandingGear"}},
	{category: CategoryLandingGear, allOf: []string{"ModuleWheelBase", "ModuleWheelDeployment"}, noneOf: []string{"ModuleWheelBogey"}},
	{category: CategoryLandingLeg, anyOf: []string{"ModuleLandingLeg"}},
	{category: CategoryLandingLeg, allOf: []string{"ModuleWheelBase", "ModuleWheelBogey"}},
	{category: CategoryLaunchClamp, anyOf: []string{"LaunchClamp"}},
	{category: CategoryLight, anyOf: []string{"ModuleLight"}},
	{category: CategoryParachute, anyOf: []string{"ModuleParachute"}},
	{category: CategoryRadiator, anyOf: []string{"ModuleActiveRadiator", "ModuleDeployableRadiator"}},
	{category: CategoryRCS, anyOf: []string{"ModuleRCS", "ModuleRCSFX"}},
	{category: CategoryResourceConverter, anyOf: []string{"ModuleResourceConverter"}},
	{category: CategoryResourceHarvester, anyOf: []string{"ModuleResourceHarvester"}},
	{category: CategoryReactionWheel, anyOf: []string{"ModuleReactionWheel"}},
	{category: CategorySensor, anyOf: []string{"ModuleEnviroSensor"}},
	{category: CategorySolarPanel, anyOf: []string{"ModuleDeployableSolarPanel"}},
}

func (r rule) match(tags map[string]struct{}) bool {
	if len(r.anyOf) > 0 {
		found := false
		for _, t := range r.anyOf {
			if _, ok := tags[t]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range r.allOf {
		if _, ok := tags[t]; !ok {
			return false
		}
	}
	for _, t := range r.noneOf {
		if _, ok := tags[t]; ok {
			return false
		}
	}
	return true
}

// Classify returns the categories implied by a module tag set.
// Unrecognized tags are ignored.
func Classify(tags []string) CategorySet {
	return classify(tagSet(tags))
}

func classify(set map[string]struct{}) CategorySet {
	var out CategorySet
	for _, r := range rules {
		if out.Has(r.category) {
			continue
		}
		if r.match(set) {
			out = out.with(r.category)
		}
	}
	return out
}

// Separates reports whether parts of this category detach the subtree
// below them when staged.
func (s CategorySet) Separates() bool {
	return s.Has(CategoryDecoupler) || s.Has(CategoryLaunchClamp)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
