// Package canvas defines the shared visual workspace document attached to a
// conversation thread: positioned cards holding typed components, connected
// by undirected edges. One canvas is stored per thread as a single
// schema-versioned JSON document, read and rewritten atomically as a unit.
package canvas

import (
	"encoding/json"
	"fmt"

	"weave/api/internal/identity"
)

// SchemaVersion is the only document version this build reads or writes.
// The field is a forward-compatibility gate, not a migration hook.
const SchemaVersion = 1

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Meta records provenance and edit restrictions for a card.
// CreatedBy is either the literal "ai" or a user id.
type Meta struct {
	CreatedBy string   `json:"createdBy"`
	Locked    bool     `json:"locked,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type Style struct {
	Background string `json:"background,omitempty"`
	Border     string `json:"border,omitempty"`
	Accent     string `json:"accent,omitempty"`
}

// SourceRef ties a card to a data source it was derived from. Location is
// free-form because its shape depends on the source's type (page/line for
// documents, row range for tables, timestamp for media).
type SourceRef struct {
	SourceID identity.DataSourceID `json:"sourceId"`
	Score    float64               `json:"score"`
	Location map[string]any        `json:"location,omitempty"`
}

type Citation struct {
	SourceID identity.DataSourceID `json:"sourceId"`
	Snippet  string                `json:"snippet,omitempty"`
}

// Component is the typed visual payload of a card: one of the closed kind
// set with a kind-specific data object. A component belongs to exactly one
// card and is addressed by (card id, component id).
type Component struct {
	ID        identity.ComponentID `json:"id"`
	Kind      Kind                 `json:"kind"`
	Data      map[string]any       `json:"data"`
	Citations []Citation           `json:"citations,omitempty"`
}

// Card is a positioned rectangle holding exactly one component.
type Card struct {
	ID        identity.CardID `json:"id"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	ZIndex    *int            `json:"zIndex,omitempty"`
	Title     string          `json:"title,omitempty"`
	Component Component       `json:"component"`
	Sources   []SourceRef     `json:"sources,omitempty"`
	Style     *Style          `json:"style,omitempty"`
	Meta      Meta            `json:"meta"`
}

// Edge connects two cards. Edges are logically undirected: (a,b) and (b,a)
// address the same connection.
type Edge struct {
	ID          identity.EdgeID `json:"id"`
	Source      identity.CardID `json:"source"`
	Target      identity.CardID `json:"target"`
	Label       string          `json:"label,omitempty"`
	StrokeWidth float64         `json:"strokeWidth"`
}

// SamePair reports whether the edge connects the same unordered card pair.
func (e Edge) SamePair(source, target identity.CardID) bool {
	return (e.Source == source && e.Target == target) ||
		(e.Source == target && e.Target == source)
}

// State is the whole canvas for one thread.
type State struct {
	Version  int      `json:"version"`
	Viewport Viewport `json:"viewport"`
	Cards    []Card   `json:"cards"`
	Edges    []Edge   `json:"edges"`
}

// NewState returns an empty canvas at the current schema version. Threads
// get one lazily the first time any operation targets them.
func NewState() *State {
	return &State{
		Version:  SchemaVersion,
		Viewport: Viewport{Zoom: 1},
		Cards:    []Card{},
		Edges:    []Edge{},
	}
}

// NotFoundError reports a card, edge, or component lookup that failed while
// applying a mutation. It is a recoverable, typed result; upstream layers
// map it to their 404 equivalent.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string { return e.Detail }

func notFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Detail: fmt.Sprintf(format, args...)}
}

// UnsupportedVersionError reports a stored document whose schema version
// this build cannot read.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported canvas version %d", e.Version)
}

// Decode parses a stored canvas document and gates on the schema version.
func Decode(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode canvas: %w", err)
	}
	if state.Version != SchemaVersion {
		return nil, &UnsupportedVersionError{Version: state.Version}
	}
	if state.Cards == nil {
		state.Cards = []Card{}
	}
	if state.Edges == nil {
		state.Edges = []Edge{}
	}
	return &state, nil
}

// Encode renders the canvas to its stored JSON form.
func (s *State) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy. Mutating the copy never touches the original,
// including nested component data maps.
func (s *State) Clone() *State {
	out := &State{
		Version:  s.Version,
		Viewport: s.Viewport,
		Cards:    make([]Card, len(s.Cards)),
		Edges:    make([]Edge, len(s.Edges)),
	}
	for i, card := range s.Cards {
		out.Cards[i] = cloneCard(card)
	}
	copy(out.Edges, s.Edges)
	return out
}

func cloneCard(card Card) Card {
	out := card
	if card.ZIndex != nil {
		z := *card.ZIndex
		out.ZIndex = &z
	}
	if card.Style != nil {
		style := *card.Style
		out.Style = &style
	}
	if card.Sources != nil {
		out.Sources = make([]SourceRef, len(card.Sources))
		for i, ref := range card.Sources {
			out.Sources[i] = ref
			if ref.Location != nil {
				out.Sources[i].Location = cloneMap(ref.Location)
			}
		}
	}
	if card.Meta.Tags != nil {
		out.Meta.Tags = append([]string(nil), card.Meta.Tags...)
	}
	out.Component = card.Component
	if card.Component.Data != nil {
		out.Component.Data = cloneMap(card.Component.Data)
	}
	if card.Component.Citations != nil {
		out.Component.Citations = append([]Citation(nil), card.Component.Citations...)
	}
	return out
}

// FindCard returns a pointer into s.Cards, valid until the slice is resized.
func (s *State) FindCard(id identity.CardID) (*Card, bool) {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return &s.Cards[i], true
		}
	}
	return nil, false
}

// AddCards appends fully-formed cards.
func (s *State) AddCards(cards ...Card) {
	s.Cards = append(s.Cards, cards...)
}

// RemoveCard removes the card and cascades to every edge touching it.
func (s *State) RemoveCard(id identity.CardID) error {
	idx := -1
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("card %s not found", id)
	}
	s.Cards = append(s.Cards[:idx], s.Cards[idx+1:]...)

	kept := s.Edges[:0]
	for _, edge := range s.Edges {
		if edge.Source == id || edge.Target == id {
			continue
		}
		kept = append(kept, edge)
	}
	s.Edges = kept
	return nil
}

// AddEdge inserts a validated edge. Both endpoints must exist; inserting a
// duplicate of an existing unordered pair is a silent no-op.
func (s *State) AddEdge(edge Edge) error {
	if _, ok := s.FindCard(edge.Source); !ok {
		return notFound("edge source card %s not found", edge.Source)
	}
	if _, ok := s.FindCard(edge.Target); !ok {
		return notFound("edge target card %s not found", edge.Target)
	}
	for _, existing := range s.Edges {
		if existing.SamePair(edge.Source, edge.Target) {
			return nil
		}
	}
	s.Edges = append(s.Edges, edge)
	return nil
}

// RemoveEdge removes the edge if present. Removing an absent edge is
// tolerated silently, unlike the other not-found paths.
func (s *State) RemoveEdge(id identity.EdgeID) {
	for i := range s.Edges {
		if s.Edges[i].ID == id {
			s.Edges = append(s.Edges[:i], s.Edges[i+1:]...)
			return
		}
	}
}

// ReplaceEdges swaps in a whole new edge list with no per-edge validation.
// Trusted bulk-write escape hatch for layout tooling.
func (s *State) ReplaceEdges(edges []Edge) {
	if edges == nil {
		edges = []Edge{}
	}
	s.Edges = edges
}
