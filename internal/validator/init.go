package validator

import (
	"ctarcade/Game-Arcade/internal/game"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Inbound envelopes carry the game kind as a plain string; reject
	// anything outside the supported set before it reaches a handler.
	_ = validate.RegisterValidation("gamekind", func(fl validator.FieldLevel) bool {
		_, err := game.New(game.Kind(fl.Field().String()))
		return err == nil
	})
}

func GetValidator() *validator.Validate {
	return validate
}
