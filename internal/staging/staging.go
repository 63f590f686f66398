// Package staging derives per-part decouple stages from the attachment tree.
//
// A part's own stage is reported by the simulation and is never recomputed.
// Its decouple stage is the highest stage of any separator (decoupler or
// launch clamp) on the path from the root down to and including the part,
// or -1 when no separator lies on that path. A decouple stage the
// simulation reports explicitly replaces the derived value for that part
// and is inherited by its subtree.
package staging

import (
	"sort"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/pkg/core"
)

// NoStage marks a part that never separates or has no stage action.
const NoStage = core.NoStage

// Resolve computes decouple stages for every part of t and stores them on
// the tree.
func Resolve(t *part.Tree) error {
	return t.SetDecoupleStages(Compute(t))
}

// Compute returns the decouple stage of every part, indexed by part handle.
// It does not modify t.
func Compute(t *part.Tree) []int {
	parts := t.All()
	out := make([]int, len(parts))

	// Parts are in pre-order, so a parent is always resolved before its children.
	for _, p := range parts {
		inherited := NoStage
		if parent := p.Parent(); parent != nil {
			inherited = out[parent.ID()]
		}

		if reported, ok := p.ReportedDecoupleStage(); ok {
			out[p.ID()] = reported
			continue
		}

		stage := inherited
		if p.Categories().Separates() && p.Stage() > stage {
			stage = p.Stage()
		}
		out[p.ID()] = stage
	}
	return out
}

// Stages returns the distinct decouple stages present in t, highest first.
// Parts that never separate are included as NoStage.
func Stages(t *part.Tree) []int {
	seen := make(map[int]struct{})
	for _, p := range t.All() {
		seen[p.DecoupleStage()] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Count is the number of activation stages, one more than the highest stage
// any part reports. A vessel with no staged parts has zero stages.
func Count(t *part.Tree) int {
	highest := NoStage
	for _, p := range t.All() {
		if p.Stage() > highest {
			highest = p.Stage()
		}
		if p.DecoupleStage() > highest {
			highest = p.DecoupleStage()
		}
	}
	return highest + 1
}

// MassByDecoupleStage sums part masses by the stage in which they separate.
func MassByDecoupleStage(t *part.Tree) map[int]float64 {
	out := make(map[int]float64)
	for _, p := range t.All() {
		out[p.DecoupleStage()] += p.Mass()
	}
	return out
}

// Separators returns the parts whose own action detaches a subtree, in
// pre-order.
func Separators(t *part.Tree) []*part.Part {
	var out []*part.Part
	for _, p := range t.All() {
		if p.Categories().Separates() {
			out = append(out, p)
		}
	}
	return out
}
