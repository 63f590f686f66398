package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/part"
	"github.com/krpc/spacecenter/pkg/core"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
}

func TestParseUintFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"float with decimals", "32.00", 32, false},
		{"float with trailing zero", "30.0", 30, false},
		{"large integer", "18446744073709551615", 18446744073709551615, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
		{"negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUintFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"negative integer", "-1", -1, false},
		{"float with decimals", "32.00", 32, false},
		{"negative float", "-1.00", -1, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	p := newTestParser()

	id, err := p.ParseID([]string{"17.0"}, 0, "vessel id")
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)

	_, err = p.ParseID(nil, 0, "vessel id")
	assert.EqualError(t, err, "missing argument 0 (vessel id)")

	_, err = p.ParseID([]string{"x"}, 0, "vessel id")
	assert.ErrorContains(t, err, "error converting vessel id to uint")
}

func TestParsePartRef(t *testing.T) {
	p := newTestParser()

	v, pt, err := p.ParsePartRef([]string{"3", "9"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v)
	assert.Equal(t, uint64(9), pt)

	_, _, err = p.ParsePartRef([]string{"3"})
	assert.ErrorContains(t, err, "part id")
}

func TestParseBool(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"on", true, false},
		{"false", false, false},
		{"0", false, false},
		{"Off", false, false},
		{"yes", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := p.ParseBool([]string{tt.input}, 0, "active")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumbers(t *testing.T) {
	p := newTestParser()

	f, err := p.ParseFloat([]string{"0.75"}, 0, "throttle")
	require.NoError(t, err)
	assert.Equal(t, 0.75, f)

	_, err = p.ParseFloat([]string{"fast"}, 0, "throttle")
	assert.Error(t, err)

	n, err := p.ParseInt([]string{"1", "-1"}, 1, "stage")
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	_, err = p.ParseInt([]string{"1.5"}, 0, "stage")
	assert.Error(t, err)
}

func TestParseVesselTypeAndCategory(t *testing.T) {
	p := newTestParser()

	vt, err := p.ParseVesselType([]string{"Station"}, 0)
	require.NoError(t, err)
	assert.Equal(t, core.VesselTypeStation, vt)

	_, err = p.ParseVesselType([]string{"submarine"}, 0)
	assert.Error(t, err)

	c, err := p.ParseCategory([]string{"solar_panel"}, 0)
	require.NoError(t, err)
	assert.Equal(t, part.CategorySolarPanel, c)

	_, err = p.ParseCategory(nil, 0)
	assert.Error(t, err)
}
