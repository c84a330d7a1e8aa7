package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/service"
	"github.com/tessling/optic-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid upload", service.ErrInvalidImage, http.StatusBadRequest},
		{"wrapped invalid upload", fmt.Errorf("%w: too small", service.ErrInvalidImage), http.StatusBadRequest},
		{"image not found", service.ErrImageNotFound, http.StatusNotFound},
		{"store not found", store.ErrImageNotFound, http.StatusNotFound},
		{"not owned", service.ErrNotOwned, http.StatusForbidden},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"storage failure", service.ErrStorage, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("policy rejection keeps its message", func(t *testing.T) {
		t.Parallel()
		policyErr := domain.DefaultUploadPolicy().Validate("image/jpeg", 500)
		err := fmt.Errorf("%w: %v", service.ErrInvalidImage, policyErr)
		assert.Equal(t, "image is too small (min 1000 bytes)", GetSafeErrorMessage(err))
	})

	t.Run("internal errors are replaced", func(t *testing.T) {
		t.Parallel()
		err := errors.New("open /var/optic/uploads/u1.img: disk full")
		msg := GetSafeErrorMessage(err)
		assert.Equal(t, "An unexpected error occurred", msg)
	})

	t.Run("known sentinels map to fixed messages", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Image not found", GetSafeErrorMessage(service.ErrImageNotFound))
		assert.Equal(t, "You do not own this image", GetSafeErrorMessage(service.ErrNotOwned))
		assert.Equal(t, "Failed to store image", GetSafeErrorMessage(service.ErrStorage))
	})
}
