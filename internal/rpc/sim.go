package rpc

import (
	"fmt"
	"math"

	"github.com/krpc/spacecenter/internal/cache"
	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/vessel"
)

// handleSnapshot replaces a vessel's state with a fresh reading. A reading
// whose part tree is inconsistent is rejected and the previous snapshot is
// kept.
func (s *Service) handleSnapshot(e dispatcher.Event) (any, error) {
	r, err := s.deps.Parser.ParseSnapshot(e.Args)
	if err != nil {
		return nil, badArgs(err)
	}
	v, err := vessel.New(&r, s.sink())
	if err != nil {
		s.deps.Logger.Warn("Rejected vessel snapshot", "vesselID", r.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBadArgs, err)
	}

	created := s.deps.Cache.Put(v)
	if created {
		s.deps.Logger.Info("Vessel added", "vesselID", v.ID(), "name", v.Name(), "parts", v.Parts().Len())
	}
	for _, o := range s.snapshotObservers() {
		o.VesselUpdated(v, created)
	}
	return nil, nil
}

func (s *Service) handleRemove(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseID(e.Args, 0, "vessel id")
	if err != nil {
		return nil, badArgs(err)
	}
	v, ok := s.deps.Cache.Remove(id)
	if !ok {
		return false, nil
	}
	if s.deps.Writes != nil {
		if n := s.deps.Writes.Discard(id); n > 0 {
			s.deps.Logger.Debug("Discarded pending writes for removed vessel", "vesselID", id, "writes", n)
		}
	}
	s.deps.Logger.Info("Vessel removed", "vesselID", id, "name", v.Name())

	ut := s.deps.Cache.UT()
	for _, o := range s.snapshotObservers() {
		o.VesselRemoved(id, ut)
	}
	return true, nil
}

// handleDrainWrites hands every pending write to the simulation. The
// result is always a JSON array, possibly empty.
func (s *Service) handleDrainWrites(dispatcher.Event) (any, error) {
	if s.deps.Writes == nil {
		return []any{}, nil
	}
	writes := s.deps.Writes.Drain()
	if writes == nil {
		return []any{}, nil
	}
	return writes, nil
}

func (s *Service) handleSetActive(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseID(e.Args, 0, "vessel id")
	if err != nil {
		return nil, badArgs(err)
	}
	if err := s.deps.Cache.SetActive(id); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrVesselNotFound, id)
	}
	return nil, nil
}

// rateQueueSize bounds the rate reports waiting to be applied; further
// reports are dropped until the queue drains.
const rateQueueSize = 64

// handleRate records the frame rate and time warp. Reports arrive through
// a buffered queue, so errors only reach the log.
func (s *Service) handleRate(e dispatcher.Event) (any, error) {
	fps, err := s.deps.Parser.ParseFloat(e.Args, 0, "fps")
	if err != nil {
		return nil, badArgs(err)
	}
	warp, err := s.deps.Parser.ParseFloat(e.Args, 1, "warp")
	if err != nil {
		return nil, badArgs(err)
	}
	if !finiteNonNegative(fps) || !finiteNonNegative(warp) {
		return nil, fmt.Errorf("%w: rate %v at warp %v", ErrBadArgs, fps, warp)
	}
	s.deps.Cache.SetRate(cache.Rate{FPS: fps, Warp: warp})
	return nil, nil
}

func finiteNonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 1)
}

func (s *Service) handleUT(dispatcher.Event) (any, error) {
	return s.deps.Cache.UT(), nil
}

func (s *Service) handleVessels(dispatcher.Event) (any, error) {
	vessels := s.deps.Cache.List()
	out := make([]VesselRef, 0, len(vessels))
	for _, v := range vessels {
		out = append(out, vesselRefOf(v))
	}
	return out, nil
}

// handleActiveVessel returns null when no vessel is active.
func (s *Service) handleActiveVessel(dispatcher.Event) (any, error) {
	v, ok := s.deps.Cache.Active()
	if !ok {
		return nil, nil
	}
	return vesselRefOf(v), nil
}

func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	if s.deps.Status != nil {
		return s.deps.Status(), nil
	}
	return map[string]any{
		"vessels": s.deps.Cache.Len(),
		"ut":      s.deps.Cache.UT(),
	}, nil
}
