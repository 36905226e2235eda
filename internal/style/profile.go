// Package style holds the session-scoped response preferences learned from
// user feedback. A profile only shapes how replies are phrased; it never
// changes their factual content.
package style

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Adjustment records one accepted feedback update and its provenance
type Adjustment struct {
	Dimension     string    `json:"dimension"`
	Preference    string    `json:"preference"`
	Justification string    `json:"justification,omitempty"`
	TurnSeq       int       `json:"turn_seq"`
	At            time.Time `json:"at"`
}

// Profile maps adjustable response dimensions (verbosity, tone, detail level)
// to their current preference. Later feedback on a dimension replaces the
// current preference; every replacement stays in the history. A Profile is
// exclusively owned by its session.
type Profile struct {
	current map[string]string
	history []Adjustment
}

// NewProfile creates an empty profile
func NewProfile() *Profile {
	return &Profile{current: make(map[string]string)}
}

// Set replaces the preference for a dimension and records the adjustment
func (p *Profile) Set(dimension, preference, justification string, turnSeq int) {
	dimension = strings.ToLower(strings.TrimSpace(dimension))
	p.current[dimension] = preference
	p.history = append(p.history, Adjustment{
		Dimension:     dimension,
		Preference:    preference,
		Justification: justification,
		TurnSeq:       turnSeq,
		At:            time.Now().UTC(),
	})
}

// Get returns the current preference for a dimension
func (p *Profile) Get(dimension string) (string, bool) {
	v, ok := p.current[strings.ToLower(strings.TrimSpace(dimension))]
	return v, ok
}

// Len returns the number of dimensions with a current preference
func (p *Profile) Len() int {
	return len(p.current)
}

// Dimensions returns the dimensions with a current preference, sorted
func (p *Profile) Dimensions() []string {
	dims := make([]string, 0, len(p.current))
	for d := range p.current {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// History returns every adjustment ever applied, oldest first
func (p *Profile) History() []Adjustment {
	out := make([]Adjustment, len(p.history))
	copy(out, p.history)
	return out
}

// Directives renders the current preferences as prompt instructions for the
// composer. Dimensions are ordered deterministically. An empty profile yields
// an empty string.
func (p *Profile) Directives() string {
	if len(p.current) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Apply the following style preferences from past feedback (phrasing only, never facts):\n")
	for _, d := range p.Dimensions() {
		fmt.Fprintf(&b, "- %s: %s\n", d, p.current[d])
	}
	return b.String()
}
