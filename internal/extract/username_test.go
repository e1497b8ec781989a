package extract

import (
	"strings"
	"testing"
)

func TestValidInstagramUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"alice", true},
		{"a", true},
		{"photo.taker_99", true},
		{strings.Repeat("a", 30), true},
		{strings.Repeat("a", 31), false},
		{"", false},
		{"has space", false},
		{"instagram", false},
		{"Photo", false},
		{"直播", false},
	}
	for _, tt := range tests {
		if got := validInstagramUsername(tt.in); got != tt.want {
			t.Fatalf("validInstagramUsername(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidTwitterUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"bob", true},
		{"ab", true},
		{"a", false},
		{"name_99", true},
		{strings.Repeat("a", 15), true},
		{strings.Repeat("a", 16), false},
		{"with.dot", false},
		{"twitter", false},
		{"Tweet", false},
	}
	for _, tt := range tests {
		if got := validTwitterUsername(tt.in); got != tt.want {
			t.Fatalf("validTwitterUsername(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
