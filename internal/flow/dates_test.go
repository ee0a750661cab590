package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDOBAcceptedFormats(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"15/03/2024", "2024-03-15"},
		{"5/3/2024", "2024-03-05"},
		{"15-03-2024", "2024-03-15"},
		{"15.03.2024", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"15 March 2024", "2024-03-15"},
		{"15 mar 2024", "2024-03-15"},
		{"March 15, 2024", "2024-03-15"},
		{"  15/03/2024  ", "2024-03-15"},
		{"15/03/24", "2024-03-15"},
	}
	for _, tc := range cases {
		got, ok := parseDOB(tc.input)
		require.True(t, ok, "input %q should parse", tc.input)
		require.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestParseDOBIsDayFirst(t *testing.T) {
	// 03/04 must read as 3 April, not March 4.
	got, ok := parseDOB("03/04/2024")
	require.True(t, ok)
	require.Equal(t, "2024-04-03", got)
}

func TestParseDOBRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "yesterday", "32/01/2024", "15/13/2024", "march", "12345678"} {
		_, ok := parseDOB(input)
		require.False(t, ok, "input %q should not parse", input)
	}
}

func TestExtractGestationalWeeks(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"34", 34, true},
		{"born at 34 weeks", 34, true},
		{"24", 24, true},
		{"42", 42, true},
		{"23", 0, false},
		{"43", 0, false},
		{"no numbers here", 0, false},
		{"", 0, false},
		{"34 or maybe 35", 34, true}, // first digit run wins
	}
	for _, tc := range cases {
		got, ok := extractGestationalWeeks(tc.input)
		require.Equal(t, tc.ok, ok, "input %q", tc.input)
		if tc.ok {
			require.Equal(t, tc.want, got, "input %q", tc.input)
		}
	}
}
