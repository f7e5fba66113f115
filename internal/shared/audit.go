package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder persists audit trail entries. Recording is best-effort from
// the caller's point of view; services ignore the returned error after a
// successful ledger commit.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder constructs the recorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// Record inserts one audit row.
func (r *AuditRecorder) Record(ctx context.Context, log AuditLog) error {
	if r == nil || r.pool == nil {
		return errors.New("audit recorder not initialised")
	}
	if log.Action == "" || log.Entity == "" {
		return errors.New("audit action and entity required")
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var meta []byte
	if log.Meta != nil {
		var err error
		meta, err = json.Marshal(log.Meta)
		if err != nil {
			return err
		}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`, log.Actor, log.Action, log.Entity, log.EntityID, meta, at)
	return err
}
