package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "certrail/pkg/domain"
	"certrail/pkg/requestcontext"
)

func TestRecord_StampsContextFields(t *testing.T) {
	r := NewRecorder(4, slog.New(slog.DiscardHandler))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithActorID(ctx, "admin-7")
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	subject := id.NewSubjectID()

	r.Record(ctx, ActionCertificateIssued, subject, "entity-1", "training-forklift")

	got := r.Drain(1, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, CategoryCompliance, got[0].Category)
	assert.Equal(t, now, got[0].Timestamp)
	assert.Equal(t, subject, got[0].SubjectID)
	assert.Equal(t, "admin-7", got[0].ActorID)
	assert.Equal(t, "req-42", got[0].RequestID)
}

func TestRecord_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	r := NewRecorder(1, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	subject := id.NewSubjectID()

	done := make(chan struct{})
	go func() {
		r.Record(ctx, ActionAssignmentRead, subject, "e1", "")
		r.Record(ctx, ActionAssignmentRead, subject, "e2", "")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record must never block")
	}
	got := r.Drain(2, 50*time.Millisecond)
	assert.Len(t, got, 1)
}

func TestActionCategory_UnknownDefaultsToOperations(t *testing.T) {
	assert.Equal(t, CategoryOperations, Action("someday_maybe").Category())
}
