package models

import (
	"sync"

	"github.com/go-playground/validator/v10"

	appvalidator "github.com/charlesng35/studyhall/pkg/validator"
)

var registerOnce sync.Once

// RegisterValidations installs the "thread" and "role" struct tags. It is safe to call
// more than once.
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		if err = appvalidator.RegisterValidation("thread", func(fl validator.FieldLevel) bool {
			return Thread(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		err = appvalidator.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return Role(fl.Field().String()).Valid()
		})
	})
	return err
}

// Validate checks struct tags on a model after registering the model-specific tags.
// Tag failures come back as a validation AppError carrying message.
func Validate(model any, message string) error {
	if err := RegisterValidations(); err != nil {
		return err
	}
	return appvalidator.CheckRecord(model, message)
}
