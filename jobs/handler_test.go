package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"github.com/eltaworks/workshop-suite/internal/shared"
)

type fakeEnqueuer struct {
	calls int
}

func (f *fakeEnqueuer) EnqueueReorderScan(context.Context) (*asynq.TaskInfo, error) {
	f.calls++
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newTriggerHandler(enq Enqueuer) *Handler {
	pins := shared.NewPinGuard("4242", "1111", "2222")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(nil, enq, pins, logger)
}

func TestTriggerReorderScanRequiresAdminPin(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newTriggerHandler(enq)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reorder-scan", strings.NewReader(`{"pin":"9999"}`))
	h.triggerReorderScan(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, enq.calls)
}

func TestTriggerReorderScanEnqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newTriggerHandler(enq)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reorder-scan", strings.NewReader(`{"pin":"4242"}`))
	h.triggerReorderScan(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, enq.calls)
	assert.Contains(t, rec.Body.String(), "task-1")
}

func TestTriggerReorderScanWithoutQueue(t *testing.T) {
	h := newTriggerHandler(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reorder-scan", strings.NewReader(`{"pin":"4242"}`))
	h.triggerReorderScan(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
