package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"it-inventory-api/internal/models"
)

func (r reader) LastSweepRun(ctx context.Context) (*models.SweepRun, error) {
	var (
		run  models.SweepRun
		date time.Time
	)
	err := r.q.QueryRow(ctx, `
		SELECT run_date, run_id, started_at, notification_count
		FROM sweep_runs
		ORDER BY run_date DESC
		LIMIT 1`).Scan(&date, &run.RunID, &run.StartedAt, &run.NotificationCount)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	run.RunDate = models.DateOf(date)
	return &run, nil
}

// ClaimSweepRun inserts the day's marker. The primary key on run_date makes
// a second claim for the same day a no-op unless force replaces it.
func (t *txStore) ClaimSweepRun(ctx context.Context, run *models.SweepRun, force bool) (bool, error) {
	onConflict := `DO NOTHING`
	if force {
		onConflict = `DO UPDATE SET run_id = EXCLUDED.run_id, started_at = EXCLUDED.started_at,
			notification_count = EXCLUDED.notification_count`
	}
	tag, err := t.q.Exec(ctx, `
		INSERT INTO sweep_runs (run_date, run_id, started_at, notification_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_date) `+onConflict,
		run.RunDate.Time, run.RunID, run.StartedAt, run.NotificationCount)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txStore) InsertNotification(ctx context.Context, n *models.WarrantyNotification) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO warranty_notifications (asset_id, run_id, tier, days_remaining, recipients, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		n.AssetID, n.RunID, n.Tier, n.DaysRemaining, n.Recipients, n.SentAt).Scan(&n.ID)
	return mapError(err)
}
