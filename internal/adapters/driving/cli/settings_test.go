package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgres://veritas:****@db:5432/veritas",
		maskDatabaseURL("postgres://veritas:secret@db:5432/veritas"))
	assert.Equal(t, "postgres://db/veritas", maskDatabaseURL("postgres://db/veritas"))
	assert.Equal(t, "", maskDatabaseURL(""))
}

func TestSettingsShow(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "sk-t...7890")
	assert.Contains(t, out, "Grounding: strict")
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsGrounding(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settings := settingsService.(*mockSettingsService)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "grounding", "SOFT"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, domain.GroundingSoft, settings.grounding)
	assert.Contains(t, buf.String(), "Grounding mode set to: soft")
}

func TestSettingsShow_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	rootCmd.SetArgs([]string{"settings", "show"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.EqualError(t, err, "settings service not configured")
}
