// Package engine applies canvas operations to a loaded snapshot. Apply is
// pure: the input state is cloned before any mutation, so a failed apply
// leaves the caller's snapshot untouched and storage decisions stay entirely
// with the coordinator.
package engine

import (
	"fmt"

	"weave/api/internal/canvas"
	"weave/api/internal/ops"
)

// Apply runs one operation against state and returns the resulting state.
// Lookup failures return *canvas.NotFoundError; the input is never mutated.
func Apply(state *canvas.State, op ops.Op) (*canvas.State, error) {
	next := state.Clone()
	if err := applyInPlace(next, op); err != nil {
		return nil, err
	}
	return next, nil
}

func applyInPlace(state *canvas.State, op ops.Op) error {
	switch v := op.(type) {
	case ops.AddCards:
		state.AddCards(v.Cards...)
		return nil
	case ops.RemoveCard:
		return state.RemoveCard(v.CardID)
	case ops.MoveCard:
		return moveCard(state, v)
	case ops.UpdateComponent:
		return updateComponent(state, v)
	case ops.AddEdge:
		return state.AddEdge(v.Edge)
	case ops.RemoveEdge:
		state.RemoveEdge(v.EdgeID)
		return nil
	case ops.ReplaceEdges:
		state.ReplaceEdges(v.Edges)
		return nil
	case ops.Batch:
		// Sequential against the one snapshot; the first failure aborts the
		// whole apply and the coordinator persists nothing.
		for i, inner := range v.Ops {
			if err := applyInPlace(state, inner); err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("apply: unknown op %T", op)
	}
}

func moveCard(state *canvas.State, op ops.MoveCard) error {
	card, ok := state.FindCard(op.CardID)
	if !ok {
		return &canvas.NotFoundError{Detail: fmt.Sprintf("card %s not found", op.CardID)}
	}
	if op.X != nil {
		card.X = *op.X
	}
	if op.Y != nil {
		card.Y = *op.Y
	}
	if op.Width != nil {
		card.Width = *op.Width
	}
	if op.Height != nil {
		card.Height = *op.Height
	}
	if op.Title != nil {
		card.Title = *op.Title
	}
	if op.ZIndex != nil {
		z := *op.ZIndex
		card.ZIndex = &z
	}
	return nil
}

func updateComponent(state *canvas.State, op ops.UpdateComponent) error {
	card, ok := state.FindCard(op.CardID)
	if !ok {
		return &canvas.NotFoundError{Detail: fmt.Sprintf("card %s not found", op.CardID)}
	}
	if card.Component.ID != op.ComponentID {
		return &canvas.NotFoundError{
			Detail: fmt.Sprintf("component %s not found on card %s", op.ComponentID, op.CardID),
		}
	}
	card.Component.Data = canvas.MergeData(card.Component.Data, op.Data)
	return nil
}
