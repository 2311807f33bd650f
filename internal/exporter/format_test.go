package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"covidcli/pkg/contracts/domain"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"whole number gains decimals", 13.0, "13.00"},
		{"one decimal padded", 13.4, "13.40"},
		{"two decimals kept", 8.33, "8.33"},
		{"rounds half up", 2.005, "2.00"}, // binary representation of 2.005 sits just below
		{"zero", 0.0, "0.00"},
		{"negative", -12.5, "-12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.input))
		})
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"whole count stays whole", 254000.0, "254000"},
		{"zero", 0.0, "0"},
		{"negative correction", -31.0, "-31"},
		{"large count", 7000000.0, "7000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCount(tt.input))
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "42", formatInt(42))
	assert.Equal(t, "-7", formatInt(-7))
	assert.Equal(t, "0", formatInt(0))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "true", formatBool(true))
	assert.Equal(t, "false", formatBool(false))
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "", formatOptional(nil), "absent metric stays empty, never zero")
	assert.Equal(t, "8.33", formatOptional(domain.Float(8.33)))
	assert.Equal(t, "0.00", formatOptional(domain.Float(0)), "a reported zero is a value")
}

func TestFormatOptionalCount(t *testing.T) {
	assert.Equal(t, "", formatOptionalCount(nil))
	assert.Equal(t, "254000", formatOptionalCount(domain.Float(254000)))
	assert.Equal(t, "0", formatOptionalCount(domain.Float(0)))
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2021, 3, 9, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "2021-03-09", formatDate(date))
}
