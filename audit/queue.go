package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// RecordArgs is the river job payload carrying one event to the Postgres
// store.
type RecordArgs struct {
	Event Event `json:"event"`
}

func (RecordArgs) Kind() string { return "gate_audit_record" }

func (RecordArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 3}
}

// QueueRecorder enqueues events onto the river job queue so the request
// hot path never waits on a Postgres insert.
type QueueRecorder struct {
	client *river.Client[pgx.Tx]
}

func NewQueueRecorder(client *river.Client[pgx.Tx]) *QueueRecorder {
	return &QueueRecorder{client: client}
}

func (r *QueueRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.client == nil {
		return nil
	}
	_, err := r.client.Insert(ctx, RecordArgs{Event: ev}, nil)
	return err
}
