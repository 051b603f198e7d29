package incubation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDays(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  int
	}{
		{"known label", "hiv", 30},
		{"case insensitive", "HPV", 180},
		{"whitespace trimmed", "  Syphilis ", 90},
		{"unknown label falls back", "unknown-condition", DefaultDays},
		{"empty label falls back", "", DefaultDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Days(tt.label))
		})
	}
}

func TestMaxDays(t *testing.T) {
	t.Run("maximum across labels", func(t *testing.T) {
		assert.Equal(t, 180, MaxDays([]string{"gonorrhea", "hpv", "hiv"}))
	})

	t.Run("empty input returns default", func(t *testing.T) {
		assert.Equal(t, DefaultDays, MaxDays(nil))
		assert.Equal(t, DefaultDays, MaxDays([]string{}))
	})

	t.Run("unknown labels do not shrink window below default", func(t *testing.T) {
		assert.Equal(t, DefaultDays, MaxDays([]string{"gonorrhea", "bogus"}))
	})
}

func TestMaxDaysJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"valid array", `["hiv","hepatitis b"]`, 180},
		{"single label", `["chlamydia"]`, 21},
		{"malformed JSON returns default", `["hiv"`, DefaultDays},
		{"non-array JSON returns default", `{"label":"hiv"}`, DefaultDays},
		{"empty string returns default", "", DefaultDays},
		{"empty array returns default", `[]`, DefaultDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxDaysJSON(tt.raw))
		})
	}
}
