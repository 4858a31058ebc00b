package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserError_IsDetectedThroughWrapping(t *testing.T) {
	err := fmt.Errorf("draft2open: %w", NewUserError("Missing Journal on payment document PD/1."))

	assert.True(t, IsUserError(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(err))
}

func TestInvalidState_CarriesDetails(t *testing.T) {
	err := NewInvalidState("payment document", "paid", "open")

	assert.Equal(t, CodeInvalidState, err.Code)
	assert.Equal(t, "paid", err.Details["state"])
	assert.Equal(t, "open", err.Details["action"])
}

func TestIntegrity_Is500(t *testing.T) {
	err := NewIntegrity("more than one transit line")

	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.True(t, HasCode(err, CodeIntegrity))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(nil).WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
