// Package service holds the board's business operations: validation, the
// like guard, store access and change notifications.
package service

import (
	"errors"
	"strings"

	"whisperwall/internal/models"
	"whisperwall/internal/repository"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type contentInput struct {
	Content string `validate:"required,max=500"`
}

type sessionInput struct {
	SessionToken string `validate:"required,max=128"`
}

// validateContent trims content and checks it is 1..MaxContentLength runes.
func validateContent(content string) (string, error) {
	in := contentInput{Content: strings.TrimSpace(content)}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return "", models.NewValidationError("Content too long (max 500 characters)")
		}
		return "", models.NewValidationError("Content is required")
	}
	return in.Content, nil
}

func validateSessionToken(token string) error {
	if err := validate.Struct(sessionInput{SessionToken: strings.TrimSpace(token)}); err != nil {
		return models.NewValidationError("A valid session_token is required")
	}
	return nil
}

// mapStoreError turns repository sentinels into API errors.
func mapStoreError(err error, resource string, id any) error {
	var appErr *models.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, repository.ErrDuplicate):
		return models.NewDuplicateActionError("You have already liked this " + strings.ToLower(resource))
	case errors.Is(err, repository.ErrUnavailable):
		return models.NewTransientStoreError(err)
	default:
		return models.NewInternalError(err)
	}
}
