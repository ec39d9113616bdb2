package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hackdesk/internal/domain"
)

// SnapshotFilter captures listing parameters for persisted tickets.
type SnapshotFilter struct {
	Statuses    []domain.TicketStatus
	Specialty   *string
	Participant *string
	Limit       int
	Offset      int
}

// TicketSnapshotRepository persists one record per ticket, keyed by id.
// Save upserts because ids are allocated by the manager, not the database.
type TicketSnapshotRepository interface {
	Save(ctx context.Context, snapshot *domain.TicketSnapshot) error
	GetByID(ctx context.Context, id int) (*domain.TicketSnapshot, error)
	List(ctx context.Context, filter SnapshotFilter) ([]domain.TicketSnapshot, error)
}

type ticketSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewTicketSnapshotRepository instantiates repository.
func NewTicketSnapshotRepository(pool *pgxpool.Pool) TicketSnapshotRepository {
	return &ticketSnapshotRepository{pool: pool}
}

func (r *ticketSnapshotRepository) Save(ctx context.Context, snapshot *domain.TicketSnapshot) error {
	const query = `
        INSERT INTO tickets (id, status, question, specialty, requesters, helpers,
            excluded_from_gc, helper_gone_prompted, comm_channel, dispatch_message,
            close_reason, created_at, updated_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (id) DO UPDATE SET
            status=EXCLUDED.status,
            requesters=EXCLUDED.requesters,
            helpers=EXCLUDED.helpers,
            excluded_from_gc=EXCLUDED.excluded_from_gc,
            helper_gone_prompted=EXCLUDED.helper_gone_prompted,
            comm_channel=EXCLUDED.comm_channel,
            dispatch_message=EXCLUDED.dispatch_message,
            close_reason=EXCLUDED.close_reason,
            updated_at=EXCLUDED.updated_at,
            closed_at=EXCLUDED.closed_at`
	_, err := r.pool.Exec(ctx, query,
		snapshot.ID,
		snapshot.Status,
		snapshot.Question,
		snapshot.Specialty,
		snapshot.Requesters,
		snapshot.Helpers,
		snapshot.ExcludedFromGC,
		snapshot.HelperGonePrompted,
		snapshot.CommChannel,
		snapshot.DispatchMessage,
		snapshot.CloseReason,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
		snapshot.ClosedAt,
	)
	return err
}

func (r *ticketSnapshotRepository) GetByID(ctx context.Context, id int) (*domain.TicketSnapshot, error) {
	const query = `
        SELECT id, status, question, specialty, requesters, helpers,
               excluded_from_gc, helper_gone_prompted, comm_channel,
               dispatch_message, close_reason, created_at, updated_at, closed_at
        FROM tickets WHERE id=$1`
	var snapshot domain.TicketSnapshot
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.Status,
		&snapshot.Question,
		&snapshot.Specialty,
		&snapshot.Requesters,
		&snapshot.Helpers,
		&snapshot.ExcludedFromGC,
		&snapshot.HelperGonePrompted,
		&snapshot.CommChannel,
		&snapshot.DispatchMessage,
		&snapshot.CloseReason,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
		&snapshot.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *ticketSnapshotRepository) List(ctx context.Context, filter SnapshotFilter) ([]domain.TicketSnapshot, error) {
	query := `
        SELECT id, status, question, specialty, requesters, helpers,
               excluded_from_gc, helper_gone_prompted, comm_channel,
               dispatch_message, close_reason, created_at, updated_at, closed_at
        FROM tickets WHERE 1=1`
	args := []any{}
	idx := 1

	if len(filter.Statuses) > 0 {
		query += ` AND status = ANY($` + itoa(idx) + `)`
		args = append(args, statusStrings(filter.Statuses))
		idx++
	}
	if filter.Specialty != nil {
		query += ` AND specialty = $` + itoa(idx)
		args = append(args, *filter.Specialty)
		idx++
	}
	if filter.Participant != nil {
		query += ` AND ($` + itoa(idx) + ` = ANY(requesters) OR $` + itoa(idx) + ` = ANY(helpers))`
		args = append(args, *filter.Participant)
		idx++
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT $` + itoa(idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + itoa(idx)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []domain.TicketSnapshot{}
	for rows.Next() {
		var snapshot domain.TicketSnapshot
		if err := rows.Scan(
			&snapshot.ID,
			&snapshot.Status,
			&snapshot.Question,
			&snapshot.Specialty,
			&snapshot.Requesters,
			&snapshot.Helpers,
			&snapshot.ExcludedFromGC,
			&snapshot.HelperGonePrompted,
			&snapshot.CommChannel,
			&snapshot.DispatchMessage,
			&snapshot.CloseReason,
			&snapshot.CreatedAt,
			&snapshot.UpdatedAt,
			&snapshot.ClosedAt,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// ErrNoRows re-exports the pgx sentinel so callers do not import pgx directly.
var ErrNoRows = pgx.ErrNoRows

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
