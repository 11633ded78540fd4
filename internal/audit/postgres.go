package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table PostgresSink writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS gateway_audit_events (
	id          UUID PRIMARY KEY,
	gate        TEXT NOT NULL,
	status      TEXT NOT NULL,
	http_status INTEGER NOT NULL,
	code        TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	actor_type  TEXT NOT NULL,
	actor_id    TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	method      TEXT NOT NULL,
	path        TEXT NOT NULL,
	origin      TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT '',
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS gateway_audit_events_created_at_idx ON gateway_audit_events (created_at DESC);
`

// PostgresSink stores events in gateway_audit_events.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// EnsureSchema creates the audit table when it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	var err error
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO gateway_audit_events (
			id, gate, status, http_status, code, message, actor_type, actor_id, role,
			method, path, origin, ip_address, user_agent, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.pool.Exec(ctx, query,
		event.ID,
		event.Gate,
		event.Status,
		event.HTTPStatus,
		event.Code,
		event.Message,
		event.ActorType,
		event.ActorID,
		event.Role,
		event.Method,
		event.Path,
		event.Origin,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.CreatedAt,
	)
	return err
}

// Reader lists recorded events, newest first.
type Reader interface {
	Query(ctx context.Context, filter QueryFilter) ([]*Event, error)
}

// QueryFilter narrows Query results.
type QueryFilter struct {
	Gate      string
	ActorID   string
	IPAddress string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit events, newest first.
func (s *PostgresSink) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	query, args := buildQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.Gate,
			&event.Status,
			&event.HTTPStatus,
			&event.Code,
			&event.Message,
			&event.ActorType,
			&event.ActorID,
			&event.Role,
			&event.Method,
			&event.Path,
			&event.Origin,
			&event.IPAddress,
			&event.UserAgent,
			&event.RequestID,
			&metadataJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func buildQuery(filter QueryFilter) (string, []any) {
	query := `
		SELECT id, gate, status, http_status, code, message, actor_type, actor_id, role,
		       method, path, origin, ip_address, user_agent, request_id, metadata, created_at
		FROM gateway_audit_events
		WHERE 1=1`
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.Gate != "" {
		add(" AND gate = $%d", filter.Gate)
	}
	if filter.ActorID != "" {
		add(" AND actor_id = $%d", filter.ActorID)
	}
	if filter.IPAddress != "" {
		add(" AND ip_address = $%d", filter.IPAddress)
	}
	if filter.StartTime != nil {
		add(" AND created_at >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add(" AND created_at <= $%d", *filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
	} else {
		query += " LIMIT 100"
	}
	if filter.Offset > 0 {
		add(" OFFSET $%d", filter.Offset)
	}

	return query, args
}
