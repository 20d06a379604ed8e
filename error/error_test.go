package error

import (
	"errors"
	"strings"
	"testing"
)

func TestSpecError_Format(t *testing.T) {
	tests := []struct {
		caption string
		err     *SpecError
		want    string
	}{
		{
			caption: "a full diagnostic prints severity, source, span, message, and hint",
			err: &SpecError{
				Cause:      errors.New("unknown effect set"),
				Detail:     "missing",
				Severity:   SeverityError,
				SourceName: "m.pct",
				Row:        3,
				Col:        14,
				Hint:       "declare an (effect-set ...) with this name in the module",
			},
			want: "error: m.pct:3:14: unknown effect set: missing\n  hint: declare an (effect-set ...) with this name in the module",
		},
		{
			caption: "a warning prints its severity",
			err: &SpecError{
				Cause:    errors.New("unreachable arm"),
				Severity: SeverityWarning,
				Row:      7,
				Col:      2,
			},
			want: "warning: 7:2: unreachable arm",
		},
		{
			caption: "a diagnostic without a position prints the message alone",
			err: &SpecError{
				Cause: errors.New("the spec document is empty"),
			},
			want: "error: the spec document is empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("unexpected message:\nwant: %v\ngot:  %v", tt.want, got)
			}
		})
	}
}

func TestSpecErrors_SortAndSeverity(t *testing.T) {
	errs := SpecErrors{
		{Cause: errors.New("late"), Row: 9, Col: 1, Severity: SeverityWarning},
		{Cause: errors.New("early"), Row: 2, Col: 5},
		{Cause: errors.New("same row, later col"), Row: 2, Col: 9},
	}
	errs.Sort()
	if errs[0].Row != 2 || errs[0].Col != 5 || errs[2].Row != 9 {
		t.Fatalf("unexpected order: %v", errs)
	}
	if !errs.HasError() {
		t.Fatalf("HasError must report the error-severity entries")
	}
	if len(errs.Warnings()) != 1 {
		t.Fatalf("unexpected warning count: %v", len(errs.Warnings()))
	}
	if !strings.Contains(errs.Error(), "early") || !strings.Contains(errs.Error(), "late") {
		t.Fatalf("the combined message must include every diagnostic: %v", errs.Error())
	}
}
