package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDueDate(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	tests := []struct {
		raw   string
		want  time.Time
		zoned bool
	}{
		{"2024-01-01T10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, loc), false},
		{"2024-01-01T10:00", time.Date(2024, 1, 1, 10, 0, 0, 0, loc), false},
		{"2024-01-01 10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, loc), false},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, loc), false},
		{"2024-01-01T10:00:00.5", time.Date(2024, 1, 1, 10, 0, 0, 500000000, loc), false},
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{" 2024-01-01T10:00:00-05:00 ", time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), true},
		{"2024-01-01 10:00:00+02:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), true},
		{"2024-01-01 10:00:00.123456+00:00", time.Date(2024, 1, 1, 10, 0, 0, 123456000, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDueDate(tt.raw, loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
			assert.Equal(t, tt.zoned, got.Zoned)
		})
	}
}

func TestParseDueDate_Rejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "tomorrow", "01/02/2024", "2024-13-01T00:00:00"} {
		_, err := ParseDueDate(raw, time.UTC)
		assert.Error(t, err, raw)
	}
}

func TestParseDueDate_NilLocationIsLocal(t *testing.T) {
	got, err := ParseDueDate("2024-06-01T12:00:00", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Local, got.Location())
}

func TestDueTime_FormatKeepsRepresentation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-01T10:00:00", "2024-01-01T10:00:00"},
		{"2024-01-01T10:00:00.250000", "2024-01-01T10:00:00.250000"},
		{"2024-01-01T10:00:00.25", "2024-01-01T10:00:00.250000"},
		{"2024-01-01T10:00:00+00:00", "2024-01-01T10:00:00+00:00"},
		{"2024-01-01T10:00:00Z", "2024-01-01T10:00:00+00:00"},
		{"2024-01-01T10:00:00+05:30", "2024-01-01T10:00:00+05:30"},
		{"2024-01-01T10:00:00.5+00:00", "2024-01-01T10:00:00.500000+00:00"},
		{"2024-01-01 10:00:00+02:00", "2024-01-01T10:00:00+02:00"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDueDate(tt.raw, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Format())
		})
	}
}

func TestDueTime_With(t *testing.T) {
	d, err := ParseDueDate("2024-01-01T10:00:00+05:30", time.UTC)
	require.NoError(t, err)

	moved := d.With(d.AddDate(0, 0, 1))
	assert.True(t, moved.Zoned)
	assert.Equal(t, "2024-01-02T10:00:00+05:30", moved.Format())
}
