package store

import (
	"context"
	"time"

	"it-inventory-api/internal/models"
)

const repairSelect = `
	SELECT id, asset_id, repair_date, issue_description, resolution, cost,
		is_warranty_repair, vendor, ticket_number, created_at
	FROM repairs`

func scanRepair(row scanner, extra ...any) (models.Repair, error) {
	var (
		r    models.Repair
		date time.Time
	)
	dest := []any{
		&r.ID, &r.AssetID, &date, &r.IssueDescription, &r.Resolution, &r.Cost,
		&r.IsWarrantyRepair, &r.Vendor, &r.TicketNumber, &r.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Repair{}, err
	}
	r.RepairDate = models.DateOf(date)
	return r, nil
}

func (r reader) queryRepairs(ctx context.Context, query string, args ...any) ([]models.Repair, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	repairs := []models.Repair{}
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, rep)
	}
	return repairs, rows.Err()
}

func (r reader) ListRepairs(ctx context.Context, assetID int64) ([]models.Repair, error) {
	return r.queryRepairs(ctx, repairSelect+` WHERE asset_id = $1 ORDER BY repair_date, id`, assetID)
}

func (r reader) ListAllRepairs(ctx context.Context) ([]models.Repair, error) {
	return r.queryRepairs(ctx, repairSelect+` ORDER BY id`)
}

func (r reader) RecentRepairs(ctx context.Context, limit int) ([]models.RecentRepair, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.id, r.asset_id, r.repair_date, r.issue_description, r.resolution, r.cost,
			r.is_warranty_repair, r.vendor, r.ticket_number, r.created_at,
			a.asset_tag, a.name, a.asset_type
		FROM repairs r
		JOIN assets a ON a.id = r.asset_id
		ORDER BY r.repair_date DESC, r.id DESC`+limitOffset(limit, 0))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.RecentRepair{}
	for rows.Next() {
		var rr models.RecentRepair
		rep, err := scanRepair(rows, &rr.AssetTag, &rr.AssetName, &rr.AssetType)
		if err != nil {
			return nil, err
		}
		rr.Repair = rep
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (t *txStore) InsertRepair(ctx context.Context, rep *models.Repair) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO repairs (asset_id, repair_date, issue_description, resolution, cost,
			is_warranty_repair, vendor, ticket_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		rep.AssetID, rep.RepairDate.Time, rep.IssueDescription, rep.Resolution, rep.Cost,
		rep.IsWarrantyRepair, rep.Vendor, rep.TicketNumber).Scan(&rep.ID, &rep.CreatedAt)
	return mapError(err)
}
