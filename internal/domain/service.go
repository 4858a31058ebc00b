package domain

import (
	"paydocs/internal/core/apperror"
)

// NormalizeValidationErr keeps structured AppErrors and wraps anything else
// as a validation error.
func NormalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

// NormalizeGetErr maps repository lookup errors to the entity being read.
func NormalizeGetErr(entityName string, err error, key any) error {
	if err == nil {
		return nil
	}
	// Preserve existing AppError, but ensure not-found names the right entity.
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entityName).WithDetail("id", key)
}
