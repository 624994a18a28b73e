package feedback

import (
	"errors"
	"testing"

	"github.com/iuslabs/lexdex/internal/domain"
)

func TestRelevanceFeedback_Validate(t *testing.T) {
	base := RelevanceFeedback{SearchInteractionID: "i1", DocumentID: "d1", Rating: 3}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid feedback rejected: %v", err)
	}

	for _, rating := range []int{0, -1, 6, 7} {
		f := base
		f.Rating = rating
		err := f.Validate()
		if err == nil {
			t.Fatalf("rating %d accepted", rating)
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("rating %d: expected ErrValidation, got %v", rating, err)
		}
	}
}

func TestClickEvent_Validate(t *testing.T) {
	c := ClickEvent{SearchInteractionID: "i1", DocumentID: "d1", Position: 2}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid click rejected: %v", err)
	}
	c.Position = -1
	if err := c.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestABTestConfig_Validate(t *testing.T) {
	valid := ABTestConfig{
		Name:         "ranking-weights",
		Variants:     []string{"control", "heavy-semantic"},
		TrafficSplit: map[string]float64{"control": 0.5, "heavy-semantic": 0.5},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	t.Run("split does not sum to one", func(t *testing.T) {
		c := valid
		c.TrafficSplit = map[string]float64{"control": 0.5, "heavy-semantic": 0.3}
		if err := c.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing variant share", func(t *testing.T) {
		c := valid
		c.TrafficSplit = map[string]float64{"control": 1.0}
		if err := c.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("single variant", func(t *testing.T) {
		c := valid
		c.Variants = []string{"control"}
		c.TrafficSplit = map[string]float64{"control": 1.0}
		if err := c.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
