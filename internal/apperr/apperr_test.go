package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("confirm: %w", InvalidTransition("Appointment is not pending"))

	assert.Equal(t, KindInvalidTransition, KindOf(err))
	assert.Equal(t, "Appointment is not pending", Message(err))
	assert.False(t, errors.Is(err, ErrNotFound))

	missing := fmt.Errorf("load: %w", NotFound("Appointment not found"))
	assert.True(t, errors.Is(missing, ErrNotFound))
	assert.False(t, errors.Is(missing, ErrAuthorization))
}

func TestUnhandledKeepsRawMessage(t *testing.T) {
	err := errors.New("connection reset by peer")

	assert.Equal(t, KindUnhandled, KindOf(err))
	assert.Equal(t, "connection reset by peer", Message(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindOf(err)))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(KindValidation, "User already exists", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "User already exists", Message(err))
	assert.Equal(t, "User already exists: duplicate key", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindInvalidReference:  http.StatusBadRequest,
		KindInvalidTransition: http.StatusBadRequest,
		KindAuthentication:    http.StatusUnauthorized,
		KindAuthorization:     http.StatusForbidden,
		KindNotFound:          http.StatusNotFound,
		KindUnhandled:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind.String())
	}
}
