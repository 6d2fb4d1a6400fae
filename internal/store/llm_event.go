package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// eventRepo implements EventQuerier backed by sqlx and the global sequence
// counter.
type eventRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO llm_request_events (
			sequence, timestamp, request_id, provider, model, purpose,
			input_tokens, output_tokens, latency_ms, success, error_message,
			request_body, response_body
		) VALUES (
			:sequence, :timestamp, :request_id, :provider, :model, :purpose,
			:input_tokens, :output_tokens, :latency_ms, :success, :error_message,
			:request_body, :response_body
		)`,
		LLMRequestEventRecord{
			Sequence:     seqNum,
			Timestamp:    time.Now().UTC(),
			RequestID:    data.RequestID,
			Provider:     data.Provider,
			Model:        data.Model,
			Purpose:      data.Purpose,
			InputTokens:  data.InputTokens,
			OutputTokens: data.OutputTokens,
			LatencyMs:    data.LatencyMs,
			Success:      data.Success,
			ErrorMessage: data.ErrorMessage,
			RequestBody:  data.RequestBody,
			ResponseBody: data.ResponseBody,
		})
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UTC())
	}
	if !opts.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, opts.To.UTC())
	}

	q := "SELECT * FROM llm_request_events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var events []LLMRequestEventRecord
	if err := r.db.SelectContext(ctx, &events, q, args...); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error) {
	var e LLMRequestEventRecord
	err := r.db.GetContext(ctx, &e, "SELECT * FROM llm_request_events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("llm event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return &e, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	var stats []LLMUsageStats
	err := r.db.SelectContext(ctx, &stats, `
		SELECT purpose,
		       COUNT(*)                        AS calls,
		       COALESCE(SUM(input_tokens), 0)  AS input_tokens,
		       COALESCE(SUM(output_tokens), 0) AS output_tokens,
		       COALESCE(AVG(latency_ms), 0)    AS avg_latency_ms
		FROM llm_request_events
		GROUP BY purpose
		ORDER BY calls DESC, purpose`)
	if err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}
	return stats, nil
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error) {
	var usage []LLMModelUsage
	err := r.db.SelectContext(ctx, &usage, `
		SELECT model,
		       COUNT(*)                        AS calls,
		       COALESCE(SUM(input_tokens), 0)  AS input_tokens,
		       COALESCE(SUM(output_tokens), 0) AS output_tokens
		FROM llm_request_events
		GROUP BY model
		ORDER BY calls DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	return usage, nil
}

// runsQuery joins each request ID's aggregates to its first and last call.
// Events without a request ID are not part of any run.
const runsQuery = `
	SELECT g.request_id      AS request_id,
	       f.timestamp       AS started_at,
	       f.purpose         AS purpose,
	       f.model           AS model,
	       g.calls           AS calls,
	       g.repair_calls    AS repair_calls,
	       g.input_tokens    AS input_tokens,
	       g.output_tokens   AS output_tokens,
	       g.latency_ms      AS latency_ms,
	       l.success         AS succeeded
	FROM (
		SELECT request_id,
		       MIN(sequence)                                  AS first_seq,
		       MAX(sequence)                                  AS last_seq,
		       COUNT(*)                                       AS calls,
		       SUM(CASE WHEN purpose = ? THEN 1 ELSE 0 END)   AS repair_calls,
		       COALESCE(SUM(input_tokens), 0)                 AS input_tokens,
		       COALESCE(SUM(output_tokens), 0)                AS output_tokens,
		       COALESCE(SUM(latency_ms), 0)                   AS latency_ms
		FROM llm_request_events
		WHERE request_id <> ''
		GROUP BY request_id
	) g
	JOIN llm_request_events f ON f.sequence = g.first_seq
	JOIN llm_request_events l ON l.sequence = g.last_seq`

func (r *eventRepo) QueryGenerationRuns(ctx context.Context, repairPurpose string, limit int) ([]GenerationRun, error) {
	q := runsQuery + " ORDER BY g.first_seq DESC"
	args := []any{repairPurpose}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	var runs []GenerationRun
	if err := r.db.SelectContext(ctx, &runs, q, args...); err != nil {
		return nil, fmt.Errorf("query generation runs: %w", err)
	}
	return runs, nil
}

func (r *eventRepo) LLMEventsForRequest(ctx context.Context, prefix string) ([]LLMRequestEventRecord, error) {
	if prefix == "" {
		return nil, fmt.Errorf("request %q: %w", prefix, ErrNotFound)
	}

	var events []LLMRequestEventRecord
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM llm_request_events
		WHERE request_id = (
			SELECT request_id FROM llm_request_events
			WHERE substr(request_id, 1, ?) = ?
			ORDER BY sequence DESC
			LIMIT 1
		)
		ORDER BY sequence`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("events for request: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("request %q: %w", prefix, ErrNotFound)
	}
	return events, nil
}

func (r *eventRepo) LLMRunStatsByPurpose(ctx context.Context, repairPurpose string) ([]LLMRunStats, error) {
	var stats []LLMRunStats
	err := r.db.SelectContext(ctx, &stats, `
		SELECT purpose,
		       COUNT(*)                                              AS runs,
		       SUM(CASE WHEN repair_calls > 0 THEN 1 ELSE 0 END)     AS repaired_runs,
		       SUM(CASE WHEN succeeded THEN 0 ELSE 1 END)            AS failed_runs
		FROM (`+runsQuery+`)
		GROUP BY purpose
		ORDER BY runs DESC, purpose`, repairPurpose)
	if err != nil {
		return nil, fmt.Errorf("run stats by purpose: %w", err)
	}
	return stats, nil
}
