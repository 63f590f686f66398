package main

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/krpc/spacecenter/internal/config"
	"github.com/krpc/spacecenter/internal/model"
	"github.com/krpc/spacecenter/internal/model/convert"
	gormstorage "github.com/krpc/spacecenter/internal/storage/gorm"
	"github.com/krpc/spacecenter/internal/storage/memory"
	"github.com/krpc/spacecenter/pkg/core"
)

// exportFlights replays stored flights through the memory backend, which
// writes one JSON file per flight. Flights that never ended are exported
// with the reason "open".
func exportFlights(src *gormstorage.Backend, ids []string, cfg config.MemoryConfig) ([]core.Upload, error) {
	flights, err := src.Flights()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Flight, len(flights))
	for _, f := range flights {
		byID[f.ID] = f
	}

	out := memory.New(cfg)
	var errs error
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("flight %s not found", id))
			continue
		}
		if err := replay(src, out, f); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flight %s: %w", id, err))
		}
	}
	return out.Uploads(), errs
}

func replay(src *gormstorage.Backend, out *memory.Backend, f model.Flight) error {
	flight, end := convert.FlightToCore(f)
	samples, err := src.Samples(f.ID)
	if err != nil {
		return err
	}

	if err := out.StartFlight(&flight); err != nil {
		return err
	}
	for i := range samples {
		if err := out.RecordSample(&samples[i]); err != nil {
			return err
		}
	}
	if end == nil {
		end = &core.FlightEnd{FlightID: f.ID, VesselID: f.VesselID, Reason: "open"}
		if n := len(samples); n > 0 {
			end.UT = samples[n-1].UT
			end.Time = samples[n-1].Time
		}
	}
	return out.EndFlight(end)
}
