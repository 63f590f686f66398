package part

import (
	"fmt"
	"strings"
)

// Category is a capability a part can expose.
type Category uint8

const (
	CategoryCargoBay Category = iota
	CategoryControlSurface
	CategoryDecoupler
	CategoryDockingPort
	CategoryEngine
	CategoryFairing
	CategoryIntake
	CategoryLandingGear
	CategoryLandingLeg
	CategoryLaunchClamp
	CategoryLight
	CategoryParachute
	CategoryRadiator
	CategoryRCS
	CategoryResourceConverter
	CategoryResourceHarvester
	CategoryReactionWheel
	CategorySensor
	CategorySolarPanel

	numCategories
)

var categoryNames = [numCategories]string{
	CategoryCargoBay:          "cargo_bay",
	CategoryControlSurface:    "control_surface",
	CategoryDecoupler:         "decoupler",
	CategoryDockingPort:       "docking_port",
	CategoryEngine:            "engine",
	CategoryFairing:           "fairing",
	CategoryIntake:            "intake",
	CategoryLandingGear:       "landing_gear",
	CategoryLandingLeg:        "landing_leg",
	CategoryLaunchClamp:       "launch_clamp",
	CategoryLight:             "light",
	CategoryParachute:         "parachute",
	CategoryRadiator:          "radiator",
	CategoryRCS:               "rcs",
	CategoryResourceConverter: "resource_converter",
	CategoryResourceHarvester: "resource_harvester",
	CategoryReactionWheel:     "reaction_wheel",
	CategorySensor:            "sensor",
	CategorySolarPanel:        "solar_panel",
}

func (c Category) String() string {
	if c >= numCategories {
		return fmt.Sprintf("category(%d)", c)
	}
	return categoryNames[c]
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// ParseCategory converts a snake_case category name.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown part category: %q", s)
}

// CategorySet is a set of categories. The zero value is empty.
type CategorySet uint32

func (s CategorySet) Has(c Category) bool {
	return s&(1<<c) != 0
}

func (s CategorySet) with(c Category) CategorySet {
	return s | 1<<c
}

// Slice lists the members in declaration order.
func (s CategorySet) Slice() []Category {
	var out []Category
	for c := Category(0); c < numCategories; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
