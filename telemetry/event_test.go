package telemetry

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorProperties_StructuredError(t *testing.T) {
	t.Parallel()

	props := errorProperties(errors.New("boom"), map[string]any{"component": "db"})

	if props["message"] != "boom" {
		t.Errorf("message = %v, want boom", props["message"])
	}
	stack, ok := props["stack"].(string)
	if !ok || stack == "" {
		t.Error("structured errors should carry a stack trace")
	}
	if !strings.Contains(stack, "goroutine") {
		t.Errorf("stack does not look like a stack trace: %q", stack[:min(len(stack), 40)])
	}
	if props["component"] != "db" {
		t.Errorf("caller property lost: %v", props["component"])
	}
}

func TestErrorProperties_NonError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cause any
		want  string
	}{
		{"string", "something broke", "something broke"},
		{"int", 42, "42"},
		{"nil", nil, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			props := errorProperties(tt.cause, nil)
			if props["message"] != tt.want {
				t.Errorf("message = %v, want %q", props["message"], tt.want)
			}
			if _, ok := props["stack"]; ok {
				t.Error("non-structured values must not carry a stack")
			}
		})
	}
}

func TestErrorProperties_NormalizedKeysWin(t *testing.T) {
	t.Parallel()

	props := errorProperties(errors.New("real message"), map[string]any{
		"message": "caller message",
		"stack":   "caller stack",
		"other":   "kept",
	})

	if props["message"] != "real message" {
		t.Errorf("message = %v, normalized key must win", props["message"])
	}
	if props["stack"] == "caller stack" {
		t.Error("stack = caller value, normalized key must win")
	}
	if props["other"] != "kept" {
		t.Errorf("other = %v, want kept", props["other"])
	}
}

func TestValidType(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeMetric, TypeEvent, TypeError, TypeTrace} {
		if !ValidType(typ) {
			t.Errorf("ValidType(%q) = false", typ)
		}
	}
	if ValidType("gauge") {
		t.Error(`ValidType("gauge") = true`)
	}
}

func TestValidRating(t *testing.T) {
	t.Parallel()

	for _, r := range []Rating{RatingGood, RatingNeedsImprovement, RatingPoor} {
		if !ValidRating(r) {
			t.Errorf("ValidRating(%q) = false", r)
		}
	}
	if ValidRating("excellent") {
		t.Error(`ValidRating("excellent") = true`)
	}
}
