package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const eventColumns = "id, stream_id, stream_type, version, event_type, payload, created_at"

// appendEvents writes a batch in one statement. The batch goes in only
// while the stream is still at the expected version; versions follow the
// batch order.
const appendEvents = `
INSERT INTO events (` + eventColumns + `)
SELECT e.id::uuid, $1, $2, $3::int + e.ord::int, e.event_type, e.payload::jsonb, $4
FROM unnest($5::text[], $6::text[], $7::text[]) WITH ORDINALITY AS e(id, event_type, payload, ord)
WHERE (SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1) = $3`

type eventStore struct {
	db *sql.DB
}

// NewEventStore creates a new EventStore backed by Postgres.
func NewEventStore(db *sql.DB) repository.EventStore {
	return &eventStore{db: db}
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, len(events))
	types := make([]string, len(events))
	payloads := make([]string, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		ids[i] = uuid.NewString()
		types[i] = event.EventType()
		payloads[i] = string(payload)
	}

	res, err := s.db.ExecContext(ctx, appendEvents,
		streamID, streamType, expectedVersion, time.Now(),
		pq.Array(ids), pq.Array(types), pq.Array(payloads))
	if err != nil {
		// A concurrent writer took one of the versions first.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("stream %s moved past version %d: %w", streamID, expectedVersion, repository.ErrConcurrency)
		}
		return fmt.Errorf("failed to append %d event(s) to %s: %w", len(events), streamID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read appended rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("stream %s is not at version %d: %w", streamID, expectedVersion, repository.ErrConcurrency)
	}
	return nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events WHERE stream_id = $1 ORDER BY version", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var records []entity.EventStoreRecord
	for rows.Next() {
		var r entity.EventStoreRecord
		if err := rows.Scan(&r.ID, &r.StreamID, &r.StreamType, &r.Version, &r.EventType, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event of %s: %w", streamID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events of %s: %w", streamID, err)
	}
	return records, nil
}
