// Package ops defines the closed set of canvas mutation commands and their
// wire encoding. The set is the contract between upstream request handlers,
// the job queue, and the mutation engine; it is not extensible at runtime.
package ops

import (
	"encoding/json"
	"fmt"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
)

// Op is one mutation command. The concrete types below are the full set.
type Op interface {
	OpType() string
}

// AddCards appends fully-formed cards to the canvas.
type AddCards struct {
	Cards []canvas.Card `json:"cards"`
}

func (AddCards) OpType() string { return "add_card" }

// RemoveCard removes one card and cascades to every edge touching it.
type RemoveCard struct {
	CardID identity.CardID `json:"cardId"`
}

func (RemoveCard) OpType() string { return "remove_card" }

// MoveCard partially updates card placement. Only non-nil fields change;
// absence is distinct from a zero value.
type MoveCard struct {
	CardID identity.CardID `json:"cardId"`
	X      *float64        `json:"x,omitempty"`
	Y      *float64        `json:"y,omitempty"`
	Width  *float64        `json:"width,omitempty"`
	Height *float64        `json:"height,omitempty"`
	Title  *string         `json:"title,omitempty"`
	ZIndex *int            `json:"zIndex,omitempty"`
}

func (MoveCard) OpType() string { return "move_card" }

// UpdateComponent merges a partial field map into a component's data.
type UpdateComponent struct {
	CardID      identity.CardID      `json:"cardId"`
	ComponentID identity.ComponentID `json:"componentId"`
	Data        map[string]any       `json:"data"`
}

func (UpdateComponent) OpType() string { return "update_component" }

// AddEdge inserts one validated edge.
type AddEdge struct {
	Edge canvas.Edge `json:"edge"`
}

func (AddEdge) OpType() string { return "add_edge" }

// RemoveEdge removes one edge; removing an absent edge is a silent no-op.
// Accepted on the wire as either "remove_edge" or "delete_edge".
type RemoveEdge struct {
	EdgeID identity.EdgeID `json:"edgeId"`
}

func (RemoveEdge) OpType() string { return "remove_edge" }

// ReplaceEdges swaps the whole edge list without per-edge validation.
type ReplaceEdges struct {
	Edges []canvas.Edge `json:"edges"`
}

func (ReplaceEdges) OpType() string { return "update_edges" }

// Batch applies inner operations sequentially against one loaded snapshot.
// Inner ops carry no envelopes and may not nest further batches.
type Batch struct {
	Ops []Op `json:"ops"`
}

func (Batch) OpType() string { return "batch" }

// Envelope tags an operation with its target thread and tenant. Inside a
// batch the envelope is supplied once for the whole batch.
type Envelope struct {
	TenantScope uint32            `json:"tenantScope"`
	ThreadID    identity.ThreadID `json:"threadId"`
	RequestedBy string            `json:"requestedBy,omitempty"` // "ai" or a user id
	Op          Op                `json:"op"`
}

type rawOp struct {
	Type string `json:"type"`
	rawOpFields
}

// rawOpFields is the union of every op's payload fields; which ones are read
// depends on Type.
type rawOpFields struct {
	Cards       []canvas.Card        `json:"cards"`
	CardID      identity.CardID      `json:"cardId"`
	X           *float64             `json:"x"`
	Y           *float64             `json:"y"`
	Width       *float64             `json:"width"`
	Height      *float64             `json:"height"`
	Title       *string              `json:"title"`
	ZIndex      *int                 `json:"zIndex"`
	ComponentID identity.ComponentID `json:"componentId"`
	Data        map[string]any       `json:"data"`
	Edge        *canvas.Edge         `json:"edge"`
	EdgeID      identity.EdgeID      `json:"edgeId"`
	Edges       []canvas.Edge        `json:"edges"`
	Ops         []json.RawMessage    `json:"ops"`
}

// DecodeOp parses one type-tagged operation. Unknown types are rejected;
// the op set is closed.
func DecodeOp(data []byte) (Op, error) {
	return decodeOp(data, true)
}

func decodeOp(data []byte, allowBatch bool) (Op, error) {
	var raw rawOp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode op: %w", err)
	}
	switch raw.Type {
	case "add_card":
		return AddCards{Cards: raw.Cards}, nil
	case "remove_card":
		return RemoveCard{CardID: raw.CardID}, nil
	case "move_card":
		return MoveCard{
			CardID: raw.CardID,
			X:      raw.X,
			Y:      raw.Y,
			Width:  raw.Width,
			Height: raw.Height,
			Title:  raw.Title,
			ZIndex: raw.ZIndex,
		}, nil
	case "update_component":
		return UpdateComponent{CardID: raw.CardID, ComponentID: raw.ComponentID, Data: raw.Data}, nil
	case "add_edge":
		if raw.Edge == nil {
			return nil, fmt.Errorf("decode op: add_edge missing edge")
		}
		return AddEdge{Edge: *raw.Edge}, nil
	case "remove_edge", "delete_edge":
		return RemoveEdge{EdgeID: raw.EdgeID}, nil
	case "update_edges":
		return ReplaceEdges{Edges: raw.Edges}, nil
	case "batch":
		if !allowBatch {
			return nil, fmt.Errorf("decode op: nested batch not allowed")
		}
		inner := make([]Op, 0, len(raw.Ops))
		for i, item := range raw.Ops {
			op, err := decodeOp(item, false)
			if err != nil {
				return nil, fmt.Errorf("decode batch op %d: %w", i, err)
			}
			inner = append(inner, op)
		}
		return Batch{Ops: inner}, nil
	default:
		return nil, fmt.Errorf("decode op: unknown type %q", raw.Type)
	}
}

// EncodeOp renders an operation back to its type-tagged wire form.
func EncodeOp(op Op) ([]byte, error) {
	payload, err := opPayload(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

func opPayload(op Op) (map[string]any, error) {
	out := map[string]any{"type": op.OpType()}
	switch v := op.(type) {
	case AddCards:
		out["cards"] = v.Cards
	case RemoveCard:
		out["cardId"] = v.CardID
	case MoveCard:
		out["cardId"] = v.CardID
		putIfSet(out, "x", v.X)
		putIfSet(out, "y", v.Y)
		putIfSet(out, "width", v.Width)
		putIfSet(out, "height", v.Height)
		putIfSet(out, "title", v.Title)
		putIfSet(out, "zIndex", v.ZIndex)
	case UpdateComponent:
		out["cardId"] = v.CardID
		out["componentId"] = v.ComponentID
		out["data"] = v.Data
	case AddEdge:
		out["edge"] = v.Edge
	case RemoveEdge:
		out["edgeId"] = v.EdgeID
	case ReplaceEdges:
		out["edges"] = v.Edges
	case Batch:
		inner := make([]json.RawMessage, 0, len(v.Ops))
		for _, item := range v.Ops {
			if _, nested := item.(Batch); nested {
				return nil, fmt.Errorf("encode op: nested batch not allowed")
			}
			data, err := EncodeOp(item)
			if err != nil {
				return nil, err
			}
			inner = append(inner, data)
		}
		out["ops"] = inner
	default:
		return nil, fmt.Errorf("encode op: unknown op %T", op)
	}
	return out, nil
}

func putIfSet[T any](out map[string]any, key string, value *T) {
	if value != nil {
		out[key] = *value
	}
}

type rawEnvelope struct {
	TenantScope uint32          `json:"tenantScope"`
	ThreadID    string          `json:"threadId"`
	RequestedBy string          `json:"requestedBy"`
	Op          json.RawMessage `json:"op"`
}

// DecodeEnvelope parses a queued job. The thread id is validated against the
// Thread entity byte before being branded; the core never trusts raw id text.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	threadID, err := identity.ParseThreadID(raw.ThreadID)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	op, err := DecodeOp(raw.Op)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		TenantScope: raw.TenantScope,
		ThreadID:    threadID,
		RequestedBy: raw.RequestedBy,
		Op:          op,
	}, nil
}

// EncodeEnvelope renders a job for the queue.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	opData, err := EncodeOp(env.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawEnvelope{
		TenantScope: env.TenantScope,
		ThreadID:    string(env.ThreadID),
		RequestedBy: env.RequestedBy,
		Op:          opData,
	})
}
