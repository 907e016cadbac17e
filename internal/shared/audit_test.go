package shared

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	sql  string
	args []any
	err  error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func TestAuditLoggerRecordFillsDefaults(t *testing.T) {
	db := &recordingExecer{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	logger := NewAuditLogger(db)
	logger.now = func() time.Time { return fixed }

	ctx := ContextWithActor(context.Background(), 7)
	err := logger.Record(ctx, AuditLog{
		Action:   AuditCreate,
		Entity:   "bank",
		EntityID: "3",
		Meta:     map[string]any{"code": "001"},
	})
	require.NoError(t, err)

	require.Len(t, db.args, 7)
	assert.Contains(t, db.sql, "INSERT INTO audit_logs")
	assert.NotEqual(t, uuid.Nil, db.args[0])
	assert.Equal(t, int64(7), db.args[1])
	assert.Equal(t, "create", db.args[2])
	assert.Equal(t, "bank", db.args[3])
	assert.Equal(t, "3", db.args[4])
	var meta map[string]any
	require.NoError(t, json.Unmarshal(db.args[5].([]byte), &meta))
	assert.Equal(t, "001", meta["code"])
	assert.Equal(t, fixed, db.args[6])
}

func TestAuditLoggerRecordKeepsExplicitValues(t *testing.T) {
	db := &recordingExecer{}
	logger := NewAuditLogger(db)
	id := uuid.New()

	err := logger.Record(context.Background(), AuditLog{
		EventID:  id,
		ActorID:  42,
		Action:   AuditDelete,
		Entity:   "company",
		EntityID: "9",
	})
	require.NoError(t, err)
	assert.Equal(t, id, db.args[0])
	assert.Equal(t, int64(42), db.args[1])
}

func TestAuditLoggerRecordRejectsIncompleteEntries(t *testing.T) {
	logger := NewAuditLogger(&recordingExecer{})
	err := logger.Record(context.Background(), AuditLog{Action: AuditUpdate, Entity: "bank"})
	assert.Error(t, err)

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: AuditUpdate, Entity: "bank", EntityID: "1"}))
}

func TestAuditLoggerRecordPropagatesExecError(t *testing.T) {
	boom := errors.New("boom")
	logger := NewAuditLogger(&recordingExecer{err: boom})
	err := logger.Record(context.Background(), AuditLog{Action: AuditUpdate, Entity: "bank", EntityID: "1"})
	assert.ErrorIs(t, err, boom)
}
