package inputval

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"a@b.co", true},
		{"user@localhost", true},

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format
		{".user@example.com", false},
		{"user.@example.com", false},
		{"user..name@example.com", false},
		{"user@.example.com", false},
		{"user@example..com", false},
		{"a@b@example.com", false},

		// Display name format is rejected
		{"User Name <user@example.com>", false},

		// Spaces
		{"user @example.com", false},
		{"user@ example.com", false},
		{"user@exam ple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"abc", true},
		{"study_buddy_2024", true},
		{strings.Repeat("a", 20), true},
		{"ab", false},
		{strings.Repeat("a", 21), false},
		{"has space", false},
		{"dash-name", false},
		{"émile", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUsername(tt.name); got != tt.want {
				t.Errorf("IsValidUsername(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"  507f1f77bcf86cd799439011  ", true},
		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
		{"not-a-valid-id", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestLen_CountsRunes(t *testing.T) {
	if got := Len("héllo"); got != 5 {
		t.Errorf("Len = %d, want 5", got)
	}
}

func TestOneOf(t *testing.T) {
	allowed := []string{"Mathematics", "Science"}
	if !OneOf("Science", allowed) {
		t.Error("expected Science to be allowed")
	}
	if OneOf("science", allowed) {
		t.Error("match must be exact")
	}
}

func TestResult(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		r := &Result{}
		r.Check(true, "name", "unused")
		if r.HasErrors() || r.First() != "" || r.All() != "" || r.Err() != nil {
			t.Errorf("expected empty result, got %+v", r.Errors)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		r := &Result{}
		r.Check(false, "name", "Error 1")
		r.Check(false, "description", "Error 2")
		if r.First() != "Error 1" {
			t.Errorf("First() = %q", r.First())
		}
		if r.All() != "Error 1; Error 2" {
			t.Errorf("All() = %q", r.All())
		}
		err := r.Err()
		if !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Err() kind = %v, want InvalidArgument", apperr.KindOf(err))
		}
	})
}
