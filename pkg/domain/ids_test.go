package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "passage/pkg/domain-errors"
)

func TestNewCandidateID(t *testing.T) {
	a := NewCandidateID()
	b := NewCandidateID()

	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}

func TestParseCandidateID_Roundtrip(t *testing.T) {
	original := NewCandidateID()

	parsed, err := ParseCandidateID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseCandidateID_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not a uuid", "abc-123"},
		{"nil uuid", "00000000-0000-0000-0000-000000000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCandidateID(tc.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseEventID(t *testing.T) {
	original := NewEventID()

	parsed, err := ParseEventID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseEventID("not-a-uuid")
	assert.Error(t, err)
}
