package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSnapshotSQL = `INSERT INTO sweep_snapshots (
        sweep_ts,
        event_id,
        listings_seen,
        best_score,
        best_price,
        mean_price,
        ranked_payload,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (sweep_ts, event_id) DO UPDATE
    SET
        listings_seen  = EXCLUDED.listings_seen,
        best_score     = EXCLUDED.best_score,
        best_price     = EXCLUDED.best_price,
        mean_price     = EXCLUDED.mean_price,
        ranked_payload = EXCLUDED.ranked_payload,
        status         = EXCLUDED.status,
        error          = EXCLUDED.error;`

	listSnapshotsBetweenSQL = `SELECT
        sweep_ts,
        event_id,
        listings_seen,
        best_score,
        best_price,
        mean_price,
        ranked_payload,
        status,
        error,
        created_at
    FROM sweep_snapshots
    WHERE event_id = $1
      AND sweep_ts >= $2
      AND sweep_ts < $3
    ORDER BY sweep_ts;`

	listRecentSnapshotsSQL = `SELECT
        sweep_ts,
        event_id,
        listings_seen,
        best_score,
        best_price,
        mean_price,
        ranked_payload,
        status,
        error,
        created_at
    FROM sweep_snapshots
    ORDER BY sweep_ts DESC
    LIMIT $1;`

	markSnapshotErroredSQL = `UPDATE sweep_snapshots
    SET status = 'errored', error = $3
    WHERE sweep_ts = $1 AND event_id = $2;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM sweep_snapshots;`

	insertAlertSQL = `INSERT INTO alerts (
        event_id,
        recipient,
        sweep_ts,
        best_score,
        ranked_payload,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, event_id, recipient, sweep_ts, best_score, ranked_payload, channels, created_at;`

	cooldownActiveSQL = `SELECT EXISTS (
        SELECT 1 FROM alerts
        WHERE event_id = $1
          AND recipient = $2
          AND created_at > $3
    );`

	listRecentAlertsSQL = `SELECT
        id,
        event_id,
        recipient,
        sweep_ts,
        best_score,
        ranked_payload,
        channels,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for sweep snapshot persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot SweepSnapshot) error
	ListSnapshotsBetween(ctx context.Context, eventID string, from, to time.Time) ([]SweepSnapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]SweepSnapshot, error)
	MarkSnapshotErrored(ctx context.Context, sweep time.Time, eventID, errMsg string) error
	CountSnapshots(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert history and cooldown checks.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	CooldownActive(ctx context.Context, eventID, recipient string, window time.Duration) (bool, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to sweep snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Unlock is best effort; the connection release drops the
		// lock anyway if the statement fails.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSnapshot persists or updates a sweep snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot SweepSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if snapshot.Error != nil {
		errMsg = *snapshot.Error
	}

	_, execErr := pool.Exec(ctx, upsertSnapshotSQL,
		snapshot.SweepTS,
		snapshot.EventID,
		snapshot.ListingsSeen,
		snapshot.BestScore,
		snapshot.BestPrice.String(),
		snapshot.MeanPrice.String(),
		[]byte(snapshot.RankedPayload),
		snapshot.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert sweep snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists an event's snapshots within a time window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, eventID string, from, to time.Time) ([]SweepSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, eventID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]SweepSnapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// ListRecentSnapshots lists the most recent snapshots ordered by descending sweep time.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]SweepSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]SweepSnapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// MarkSnapshotErrored marks a snapshot as errored.
func (s *Store) MarkSnapshotErrored(ctx context.Context, sweep time.Time, eventID, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, markSnapshotErroredSQL, sweep, eventID, errMsg)
	if execErr != nil {
		return fmt.Errorf("mark snapshot errored: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.EventID,
		alert.Recipient,
		alert.SweepTS,
		alert.BestScore,
		[]byte(alert.RankedPayload),
		alert.Channels,
	)

	var rec AlertRecord
	var payload []byte
	if scanErr := row.Scan(
		&rec.ID,
		&rec.EventID,
		&rec.Recipient,
		&rec.SweepTS,
		&rec.BestScore,
		&payload,
		&rec.Channels,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	rec.RankedPayload = json.RawMessage(payload)

	return rec, nil
}

// CooldownActive reports whether an alert for (event, recipient) was
// sent inside the cooldown window.
func (s *Store) CooldownActive(ctx context.Context, eventID, recipient string, window time.Duration) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	if window <= 0 {
		return false, nil
	}

	cutoff := time.Now().UTC().Add(-window)
	var active bool
	if scanErr := pool.QueryRow(ctx, cooldownActiveSQL, eventID, recipient, cutoff).Scan(&active); scanErr != nil {
		return false, fmt.Errorf("cooldown check: %w", scanErr)
	}
	return active, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var payload []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.EventID,
			&rec.Recipient,
			&rec.SweepTS,
			&rec.BestScore,
			&payload,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.RankedPayload = json.RawMessage(payload)
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanSnapshot(rows pgx.Rows) (SweepSnapshot, error) {
	var (
		sweepTS      time.Time
		eventID      string
		listingsSeen int
		bestScore    int
		bestPriceStr string
		meanPriceStr string
		payload      []byte
		status       string
		errMsg       sql.NullString
		createdAt    time.Time
	)

	if err := rows.Scan(
		&sweepTS,
		&eventID,
		&listingsSeen,
		&bestScore,
		&bestPriceStr,
		&meanPriceStr,
		&payload,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return SweepSnapshot{}, err
	}

	bestPrice, err := decimal.NewFromString(bestPriceStr)
	if err != nil {
		return SweepSnapshot{}, fmt.Errorf("parse best price: %w", err)
	}
	meanPrice, err := decimal.NewFromString(meanPriceStr)
	if err != nil {
		return SweepSnapshot{}, fmt.Errorf("parse mean price: %w", err)
	}

	snapshot := SweepSnapshot{
		SweepTS:       sweepTS,
		EventID:       eventID,
		ListingsSeen:  listingsSeen,
		BestScore:     bestScore,
		BestPrice:     bestPrice,
		MeanPrice:     meanPrice,
		RankedPayload: json.RawMessage(payload),
		Status:        status,
		CreatedAt:     createdAt,
	}

	if errMsg.Valid {
		msg := errMsg.String
		snapshot.Error = &msg
	}

	return snapshot, nil
}
