package services

import (
	"context"
	"strings"

	"github.com/charlesng35/studyhall/internal/models"
	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveThread maps user input onto a thread, defaulting blank input to General.
func resolveThread(value string) (models.Thread, error) {
	if strings.TrimSpace(value) == "" {
		return models.ThreadGeneral, nil
	}
	thread, ok := models.ParseThread(value)
	if !ok {
		return "", apperrors.NewValidation("Please choose a valid thread.")
	}
	return thread, nil
}

func resolveRole(role models.Role) (models.Role, error) {
	parsed, ok := models.ParseRole(string(role))
	if !ok {
		return "", apperrors.NewValidation("Please choose a valid role.")
	}
	return parsed, nil
}
