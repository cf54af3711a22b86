package ops

import (
	"fmt"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
)

// ValidateOp checks every id in an operation payload against the identity
// registry and every component kind against the closed kind set, before the
// op is allowed near a canvas. update_edges is deliberately exempt from
// endpoint checks (trusted bulk write), but its id fields must still parse.
func ValidateOp(op Op) error {
	switch v := op.(type) {
	case AddCards:
		for i, card := range v.Cards {
			if err := validateCard(card); err != nil {
				return fmt.Errorf("add_card card %d: %w", i, err)
			}
		}
	case RemoveCard:
		return identity.Validate(identity.CanvasCard, string(v.CardID))
	case MoveCard:
		return identity.Validate(identity.CanvasCard, string(v.CardID))
	case UpdateComponent:
		if err := identity.Validate(identity.CanvasCard, string(v.CardID)); err != nil {
			return err
		}
		return identity.Validate(identity.CanvasComponent, string(v.ComponentID))
	case AddEdge:
		return validateEdge(v.Edge)
	case RemoveEdge:
		return identity.Validate(identity.CanvasEdge, string(v.EdgeID))
	case ReplaceEdges:
		for i, edge := range v.Edges {
			if err := validateEdge(edge); err != nil {
				return fmt.Errorf("update_edges edge %d: %w", i, err)
			}
		}
	case Batch:
		for i, inner := range v.Ops {
			if _, nested := inner.(Batch); nested {
				return fmt.Errorf("batch op %d: nested batch not allowed", i)
			}
			if err := ValidateOp(inner); err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown op %T", op)
	}
	return nil
}

func validateCard(card canvas.Card) error {
	if err := identity.Validate(identity.CanvasCard, string(card.ID)); err != nil {
		return err
	}
	if err := identity.Validate(identity.CanvasComponent, string(card.Component.ID)); err != nil {
		return err
	}
	if !canvas.KnownKind(card.Component.Kind) {
		return fmt.Errorf("unknown component kind %q", card.Component.Kind)
	}
	for _, ref := range card.Sources {
		if err := identity.Validate(identity.DataSource, string(ref.SourceID)); err != nil {
			return err
		}
	}
	return nil
}

func validateEdge(edge canvas.Edge) error {
	if err := identity.Validate(identity.CanvasEdge, string(edge.ID)); err != nil {
		return err
	}
	if err := identity.Validate(identity.CanvasCard, string(edge.Source)); err != nil {
		return err
	}
	return identity.Validate(identity.CanvasCard, string(edge.Target))
}
