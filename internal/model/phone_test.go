package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigits(t *testing.T) {
	cases := map[string]string{
		"+1 (415) 555-0134": "14155550134",
		"+49 151 23456789":  "4915123456789",
		"415.555.0134":      "4155550134",
		"call me maybe":     "",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, InputRequest{Number: in}.Digits(), "input %q", in)
	}
}

func TestIsPlausible(t *testing.T) {
	cases := []struct {
		number string
		want   bool
	}{
		{"+14155550134", true},
		{"1234567", true},               // 7 digits, lower bound
		{"123456789012345", true},       // 15 digits, upper bound
		{"123456", false},               // too short
		{"1234567890123456", false},     // too long
		{"not a number", false},         // no digits
		{"+1 (415) 555-0134 ext", true}, // formatting stripped
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InputRequest{Number: tc.number}.IsPlausible(), "input %q", tc.number)
	}
}
