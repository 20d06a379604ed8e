package error

import (
	"fmt"
	"sort"
	"strings"
)

type Severity string

const (
	SeverityError   = Severity("error")
	SeverityWarning = Severity("warning")
)

type SpecError struct {
	Cause      error
	Detail     string
	Severity   Severity
	FilePath   string
	SourceName string
	Row        int
	Col        int
	Hint       string
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.Severity == "" {
		fmt.Fprintf(&b, "%v: ", SeverityError)
	} else {
		fmt.Fprintf(&b, "%v: ", e.Severity)
	}
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v:", e.SourceName)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, "%v:%v: ", e.Row, e.Col)
	} else if e.SourceName != "" {
		fmt.Fprintf(&b, " ")
	}
	fmt.Fprintf(&b, "%v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n  hint: %v", e.Hint)
	}
	return b.String()
}

func (e *SpecError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

type SpecErrors []*SpecError

func (e SpecErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v", e[0])
	for _, err := range e[1:] {
		fmt.Fprintf(&b, "\n%v", err)
	}
	return b.String()
}

// Sort orders diagnostics by source position. Diagnostics without a
// position sort first so file-level problems appear before span-level
// ones.
func (e SpecErrors) Sort() {
	sort.SliceStable(e, func(i, j int) bool {
		if e[i].Row != e[j].Row {
			return e[i].Row < e[j].Row
		}
		return e[i].Col < e[j].Col
	})
}

// HasError reports whether the collection contains at least one
// error-severity diagnostic. Warnings alone do not block the pipeline.
func (e SpecErrors) HasError() bool {
	for _, err := range e {
		if !err.IsWarning() {
			return true
		}
	}
	return false
}

func (e SpecErrors) Warnings() SpecErrors {
	var ws SpecErrors
	for _, err := range e {
		if err.IsWarning() {
			ws = append(ws, err)
		}
	}
	return ws
}
