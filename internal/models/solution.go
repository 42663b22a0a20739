package models

import "strings"

// StructuredSolution is the machine-parsable ground truth of a case. It is never shown to players before the case
// is solved.
type StructuredSolution struct {
	Victims  string `json:"victims"`
	Criminal string `json:"criminal"`
	Motive   string `json:"motive"`
}

// Complete reports whether all three fields contain text.
func (s StructuredSolution) Complete() bool {
	return strings.TrimSpace(s.Victims) != "" &&
		strings.TrimSpace(s.Criminal) != "" &&
		strings.TrimSpace(s.Motive) != ""
}
