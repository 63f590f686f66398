package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/krpc/spacecenter/pkg/core"
)

// ParseSnapshot decodes a vessel reading sent by the simulation.
// data[0] is the JSON document. Tree structure is validated later when the
// part tree is built; here only the envelope is checked.
func (p *Parser) ParseSnapshot(data []string) (core.VesselReading, error) {
	var r core.VesselReading

	raw, err := arg(data, 0, "snapshot")
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return r, fmt.Errorf("error unmarshalling vessel snapshot: %w", err)
	}
	if len(r.Parts) == 0 {
		return r, errors.New("vessel snapshot has no parts")
	}
	if r.Situation != "" && !r.Situation.Valid() {
		return r, fmt.Errorf("vessel snapshot has unknown situation %q", r.Situation)
	}
	if r.Type != "" {
		if _, err := core.ParseVesselType(string(r.Type)); err != nil {
			return r, fmt.Errorf("vessel snapshot: %w", err)
		}
	}

	p.logger.Debug("Parsed vessel snapshot",
		"vesselID", r.ID,
		"name", r.Name,
		"parts", len(r.Parts),
		"ut", r.UT)

	return r, nil
}

// ParseWrites decodes a JSON array of write requests, as returned by the
// drain command, for replaying against a simulation.
func (p *Parser) ParseWrites(data []string) ([]core.WriteRequest, error) {
	raw, err := arg(data, 0, "writes")
	if err != nil {
		return nil, err
	}
	var out []core.WriteRequest
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("error unmarshalling write requests: %w", err)
	}
	return out, nil
}
