package auth

import "testing"

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"alice", true},
		{"abc", true},
		{"user_123", true},
		{"ABCDEFGHIJ0123456789", true},
		{"ab", false},
		{"this_username_is_way_too_long_123", false},
		{"bad name", false},
		{"dash-name", false},
		{"", false},
		{"émile", false},
	}
	for _, tt := range tests {
		if got := ValidateUsername(tt.in); got != tt.want {
			t.Errorf("ValidateUsername(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.co", true},
		{"first.last+tag@mail.example.org", true},
		{"not-an-email", false},
		{"a@b.c", false},
		{"a@b", false},
		{"@b.co", false},
		{"a b@c.co", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
