package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	cases := []struct {
		name     string
		expected string
		supplied string
		want     bool
	}{
		{"exact match", "1234", "1234", true},
		{"mismatch", "1234", "0000", false},
		{"empty expected never verifies", "", "", false},
		{"empty expected with input", "", "1234", false},
		{"empty supplied", "1234", "", false},
		{"no trimming", "1234", " 1234", false},
		{"trailing space", "1234", "1234 ", false},
		{"case sensitive", "abCD", "abcd", false},
		{"prefix is not a match", "12345", "1234", false},
		{"longer input is not a match", "1234", "12345", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Verify(tc.expected, tc.supplied))
			require.Equal(t, tc.want, Exact{}.Verify(tc.expected, tc.supplied))
		})
	}
}
