package session

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		input string
		want  Phase
		err   error
	}{
		{"", PhaseNone, nil},
		{"gather", PhaseGather, nil},
		{"report", PhaseReport, nil},
		{"grading", PhaseNone, ErrInvalidPhase},
		{"GATHER", PhaseNone, ErrInvalidPhase},
	}

	for _, tc := range tests {
		got, err := ParsePhase(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParsePhase(%q) error = %v, want %v", tc.input, err, tc.err)
		}
		if got != tc.want {
			t.Errorf("ParsePhase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPhaseSuccessor(t *testing.T) {
	order := Phases()
	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Successor()
		if !ok || next != order[i+1] {
			t.Errorf("%s.Successor() = %q, %v; want %q, true", order[i], next, ok, order[i+1])
		}
	}

	if next, ok := PhaseReport.Successor(); ok {
		t.Errorf("report should have no successor, got %q", next)
	}
	if _, ok := PhaseNone.Successor(); ok {
		t.Error("PhaseNone should have no successor")
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		input string
		want  Route
		err   error
	}{
		{"essay_grading", RouteEssayGrading, nil},
		{"email_distribution", RouteEmail, nil},
		{"END", RouteEnd, nil},
		{"end", "", ErrInvalidRoute},
		{"essays", "", ErrInvalidRoute},
	}

	for _, tc := range tests {
		got, err := ParseRoute(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParseRoute(%q) error = %v, want %v", tc.input, err, tc.err)
		}
		if got != tc.want {
			t.Errorf("ParseRoute(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestRouteUnmarshalJSON(t *testing.T) {
	var r Route
	if err := r.UnmarshalJSON([]byte(`"test_grading"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != RouteTestGrading {
		t.Errorf("got %q, want %q", r, RouteTestGrading)
	}

	if err := r.UnmarshalJSON([]byte(`"bogus"`)); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("error = %v, want ErrInvalidRoute", err)
	}
}
