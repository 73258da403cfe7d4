package validator

import (
	"testing"

	"ctarcade/Game-Arcade/internal/game"
)

func TestGameKindRule(t *testing.T) {
	type payload struct {
		Kind game.Kind `validate:"required,gamekind"`
	}
	v := GetValidator()

	for _, kind := range []game.Kind{game.KindGrid, game.KindConnect, game.KindRPS, game.KindDots} {
		if err := v.Struct(payload{Kind: kind}); err != nil {
			t.Errorf("kind %q rejected: %v", kind, err)
		}
	}
	if err := v.Struct(payload{Kind: "chess"}); err == nil {
		t.Error("unknown game kind accepted")
	}
	if err := v.Struct(payload{}); err == nil {
		t.Error("empty game kind accepted")
	}
}
