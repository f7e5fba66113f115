package report

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eltaworks/workshop-suite/internal/complaints"
	"github.com/eltaworks/workshop-suite/internal/maintenance"
	"github.com/eltaworks/workshop-suite/internal/material"
)

func TestRespondDomainErrorMapsNotFound(t *testing.T) {
	h := &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	for _, err := range []error{
		complaints.ErrComplaintNotFound,
		material.ErrChallanNotFound,
		maintenance.ErrMachineNotFound,
	} {
		rec := httptest.NewRecorder()
		h.respondDomainError(rec, err)
		assert.Equal(t, http.StatusNotFound, rec.Code, "expected 404 for %v", err)
	}

	rec := httptest.NewRecorder()
	h.respondDomainError(rec, errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
