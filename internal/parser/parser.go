package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/pkg/core"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Clients in dynamically typed languages often serialize every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser provides pure []string -> typed value conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

func arg(data []string, i int, name string) (string, error) {
	if i >= len(data) {
		return "", fmt.Errorf("missing argument %d (%s)", i, name)
	}
	return data[i], nil
}

// ParseID parses the id argument at index i.
func (p *Parser) ParseID(data []string, i int, name string) (uint64, error) {
	s, err := arg(data, i, name)
	if err != nil {
		return 0, err
	}
	id, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting %s to uint: %w", name, err)
	}
	return id, nil
}

// ParsePartRef parses a (vessel id, part id) pair starting at index 0.
func (p *Parser) ParsePartRef(data []string) (vesselID, partID uint64, err error) {
	if vesselID, err = p.ParseID(data, 0, "vessel id"); err != nil {
		return 0, 0, err
	}
	if partID, err = p.ParseID(data, 1, "part id"); err != nil {
		return 0, 0, err
	}
	return vesselID, partID, nil
}

// ParseBool accepts true/false, 1/0 and on/off in any case.
func (p *Parser) ParseBool(data []string, i int, name string) (bool, error) {
	s, err := arg(data, i, name)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("error converting %s to bool: %q", name, s)
}

// ParseFloat parses a float argument. NaN and Inf are accepted here and
// rejected by the setters that cannot take them.
func (p *Parser) ParseFloat(data []string, i int, name string) (float64, error) {
	s, err := arg(data, i, name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting %s to float: %w", name, err)
	}
	return f, nil
}

// ParseInt parses an integer argument such as a stage number.
func (p *Parser) ParseInt(data []string, i int, name string) (int, error) {
	s, err := arg(data, i, name)
	if err != nil {
		return 0, err
	}
	v, err := parseIntFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting %s to int: %w", name, err)
	}
	return int(v), nil
}

// ParseString returns the argument at index i.
func (p *Parser) ParseString(data []string, i int, name string) (string, error) {
	return arg(data, i, name)
}

func (p *Parser) ParseVesselType(data []string, i int) (core.VesselType, error) {
	s, err := arg(data, i, "vessel type")
	if err != nil {
		return "", err
	}
	return core.ParseVesselType(strings.ToLower(s))
}

func (p *Parser) ParseCategory(data []string, i int) (part.Category, error) {
	s, err := arg(data, i, "category")
	if err != nil {
		return 0, err
	}
	return part.ParseCategory(s)
}
