package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Growth":                "growth",
		" growth ":              "growth",
		"GROWTH":                "growth",
		"Customer   Experience": "customer experience",
		"  ":                    "",
		"":                      "",
	}
	for input, want := range cases {
		require.Equal(t, want, Normalize(input), "input %q", input)
	}
}
