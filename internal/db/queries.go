// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type CancellationWindow struct {
	FieldID     int64
	WindowHours float64
	Source      string
	UpdatedAt   time.Time
}

type CancellationLogEntry struct {
	ID               int64
	BookingID        string
	FieldID          int64
	CancelledBy      string
	CancelledAt      time.Time
	BookingStartsAt  sql.NullTime
	HoursBeforeStart float64
	WindowHours      sql.NullFloat64
	RefundEligible   bool
	DecisionSource   string
	Reason           sql.NullString
}

const getCancellationWindow = `
SELECT field_id, window_hours, source, updated_at
FROM cancellation_windows
WHERE field_id = ?
`

func (q *Queries) GetCancellationWindow(ctx context.Context, fieldID int64) (CancellationWindow, error) {
	row := q.db.QueryRowContext(ctx, getCancellationWindow, fieldID)
	var w CancellationWindow
	err := row.Scan(&w.FieldID, &w.WindowHours, &w.Source, &w.UpdatedAt)
	return w, err
}

// GetApplicableCancellationWindow prefers the field's own row over the
// platform row (field_id = 0).
const getApplicableCancellationWindow = `
SELECT field_id, window_hours, source, updated_at
FROM cancellation_windows
WHERE field_id IN (?, 0)
ORDER BY field_id DESC
LIMIT 1
`

func (q *Queries) GetApplicableCancellationWindow(ctx context.Context, fieldID int64) (CancellationWindow, error) {
	row := q.db.QueryRowContext(ctx, getApplicableCancellationWindow, fieldID)
	var w CancellationWindow
	err := row.Scan(&w.FieldID, &w.WindowHours, &w.Source, &w.UpdatedAt)
	return w, err
}

const listCancellationWindows = `
SELECT field_id, window_hours, source, updated_at
FROM cancellation_windows
ORDER BY field_id
`

func (q *Queries) ListCancellationWindows(ctx context.Context) ([]CancellationWindow, error) {
	rows, err := q.db.QueryContext(ctx, listCancellationWindows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CancellationWindow
	for rows.Next() {
		var w CancellationWindow
		if err := rows.Scan(&w.FieldID, &w.WindowHours, &w.Source, &w.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCancellationWindow = `
INSERT INTO cancellation_windows (field_id, window_hours, source, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (field_id) DO UPDATE SET
    window_hours = excluded.window_hours,
    source = excluded.source,
    updated_at = excluded.updated_at
RETURNING field_id, window_hours, source, updated_at
`

type UpsertCancellationWindowParams struct {
	FieldID     int64
	WindowHours float64
	Source      string
	UpdatedAt   time.Time
}

func (q *Queries) UpsertCancellationWindow(ctx context.Context, arg UpsertCancellationWindowParams) (CancellationWindow, error) {
	row := q.db.QueryRowContext(ctx, upsertCancellationWindow, arg.FieldID, arg.WindowHours, arg.Source, arg.UpdatedAt)
	var w CancellationWindow
	err := row.Scan(&w.FieldID, &w.WindowHours, &w.Source, &w.UpdatedAt)
	return w, err
}

const deleteCancellationWindow = `
DELETE FROM cancellation_windows WHERE field_id = ?
`

func (q *Queries) DeleteCancellationWindow(ctx context.Context, fieldID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCancellationWindow, fieldID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const logCancellation = `
INSERT INTO cancellation_log (
    booking_id, field_id, cancelled_by, cancelled_at, booking_starts_at,
    hours_before_start, window_hours, refund_eligible, decision_source, reason
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type LogCancellationParams struct {
	BookingID        string
	FieldID          int64
	CancelledBy      string
	CancelledAt      time.Time
	BookingStartsAt  sql.NullTime
	HoursBeforeStart float64
	WindowHours      sql.NullFloat64
	RefundEligible   bool
	DecisionSource   string
	Reason           sql.NullString
}

func (q *Queries) LogCancellation(ctx context.Context, arg LogCancellationParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, logCancellation,
		arg.BookingID,
		arg.FieldID,
		arg.CancelledBy,
		arg.CancelledAt,
		arg.BookingStartsAt,
		arg.HoursBeforeStart,
		arg.WindowHours,
		arg.RefundEligible,
		arg.DecisionSource,
		arg.Reason,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listCancellationsForBooking = `
SELECT id, booking_id, field_id, cancelled_by, cancelled_at, booking_starts_at,
       hours_before_start, window_hours, refund_eligible, decision_source, reason
FROM cancellation_log
WHERE booking_id = ?
ORDER BY id
`

func (q *Queries) ListCancellationsForBooking(ctx context.Context, bookingID string) ([]CancellationLogEntry, error) {
	rows, err := q.db.QueryContext(ctx, listCancellationsForBooking, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CancellationLogEntry
	for rows.Next() {
		var e CancellationLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.BookingID,
			&e.FieldID,
			&e.CancelledBy,
			&e.CancelledAt,
			&e.BookingStartsAt,
			&e.HoursBeforeStart,
			&e.WindowHours,
			&e.RefundEligible,
			&e.DecisionSource,
			&e.Reason,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
