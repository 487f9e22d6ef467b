package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

// reader implements inventory.Reader on a pool or a transaction
type reader struct {
	q querier
}

const assetColumns = `
	a.id, a.asset_tag, a.asset_type, a.name, a.manufacturer, a.model, a.serial_number,
	a.purchase_date, a.purchase_price, a.warranty_end, a.vendor, a.po_number,
	a.status, a.prior_status, a.assigned_to, e.full_name, a.assigned_date,
	a.decommission_date, a.decommission_reason, a.notes, a.location,
	a.created_at, a.updated_at`

const assetFrom = `
	FROM assets a
	LEFT JOIN employees e ON e.id = a.assigned_to`

var assetSort = map[string]string{
	"id":            "a.id",
	"asset_tag":     "a.asset_tag",
	"name":          "a.name",
	"asset_type":    "a.asset_type",
	"status":        "a.status",
	"warranty_end":  "a.warranty_end",
	"purchase_date": "a.purchase_date",
	"created_at":    "a.created_at",
	"updated_at":    "a.updated_at",
}

// scanAsset reads assetColumns, plus any extra destinations appended after them.
func scanAsset(row scanner, extra ...any) (models.Asset, error) {
	var (
		a                                            models.Asset
		purchase, warranty, assigned, decommissioned *time.Time
	)
	dest := []any{
		&a.ID, &a.AssetTag, &a.AssetType, &a.Name, &a.Manufacturer, &a.Model, &a.SerialNumber,
		&purchase, &a.PurchasePrice, &warranty, &a.Vendor, &a.PONumber,
		&a.Status, &a.PriorStatus, &a.AssignedTo, &a.AssignedToName, &assigned,
		&decommissioned, &a.DecommissionReason, &a.Notes, &a.Location,
		&a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Asset{}, err
	}
	a.PurchaseDate = models.DatePtr(purchase)
	a.WarrantyEnd = models.DatePtr(warranty)
	a.AssignedDate = models.DatePtr(assigned)
	a.DecommissionDate = models.DatePtr(decommissioned)
	return a, nil
}

func (r reader) queryAssets(ctx context.Context, query string, args ...any) ([]models.Asset, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, r.attachRepairs(ctx, assets)
}

// attachRepairs loads the repair history of every asset in one query
func (r reader) attachRepairs(ctx context.Context, assets []models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	ids := lo.Map(assets, func(a models.Asset, _ int) int64 { return a.ID })
	repairs, err := r.queryRepairs(ctx, repairSelect+` WHERE asset_id = ANY($1) ORDER BY repair_date, id`, ids)
	if err != nil {
		return err
	}
	byAsset := lo.GroupBy(repairs, func(rep models.Repair) int64 { return rep.AssetID })
	for i := range assets {
		assets[i].Repairs = byAsset[assets[i].ID]
	}
	return nil
}

func (r reader) getAsset(ctx context.Context, id int64, lock bool) (models.Asset, error) {
	query := `SELECT` + assetColumns + assetFrom + ` WHERE a.id = $1`
	if lock {
		query += ` FOR UPDATE OF a`
	}
	a, err := scanAsset(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return models.Asset{}, notFound(err, "asset %d not found", id)
	}
	a.Repairs, err = r.ListRepairs(ctx, id)
	if err != nil {
		return models.Asset{}, err
	}
	return a, nil
}

func (r reader) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	return r.getAsset(ctx, id, false)
}

func (r reader) ListAssets(ctx context.Context, f models.AssetFilter) ([]models.Asset, int, error) {
	clauses := []string{}
	args := []any{}
	arg := 1

	if f.Type != nil {
		clauses = append(clauses, fmt.Sprintf("a.asset_type = $%d", arg))
		args = append(args, *f.Type)
		arg++
	}
	if f.Status != nil {
		clauses = append(clauses, fmt.Sprintf("a.status = $%d", arg))
		args = append(args, *f.Status)
		arg++
	}
	if f.Assigned != nil {
		if *f.Assigned {
			clauses = append(clauses, "a.assigned_to IS NOT NULL")
		} else {
			clauses = append(clauses, "a.assigned_to IS NULL")
		}
	}
	if f.EmployeeID != nil {
		clauses = append(clauses, fmt.Sprintf("a.assigned_to = $%d", arg))
		args = append(args, *f.EmployeeID)
		arg++
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, fmt.Sprintf(`(a.asset_tag ILIKE $%[1]d OR a.name ILIKE $%[1]d
			OR a.serial_number ILIKE $%[1]d OR a.manufacturer ILIKE $%[1]d OR a.model ILIKE $%[1]d)`, arg))
		args = append(args, "%"+q+"%")
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	// COUNT(*) OVER() carries the unpaged total on every row
	sqlStr := `SELECT` + assetColumns + `, COUNT(*) OVER() AS total_count` + assetFrom + whereClause +
		buildOrderBy(f.Sort, assetSort, "a.id") + limitOffset(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	var total int
	for rows.Next() {
		a, err := scanAsset(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(assets) == 0 && f.Offset > 0 {
		// past the last page: the window function saw no rows
		if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+assetFrom+whereClause, args...).Scan(&total); err != nil {
			return nil, 0, mapError(err)
		}
	}
	if err := r.attachRepairs(ctx, assets); err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

func (r reader) ListSweepCandidates(ctx context.Context) ([]models.Asset, error) {
	return r.queryAssets(ctx, `SELECT`+assetColumns+assetFrom+`
		WHERE a.status <> 'decommissioned' AND a.warranty_end IS NOT NULL
		ORDER BY a.id`)
}

func (r reader) ListAudit(ctx context.Context, assetID int64) ([]models.AuditEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, asset_id, action, entity_type, entity_id, changes, created_at
		FROM audit_log WHERE asset_id = $1
		ORDER BY created_at DESC, id DESC`, assetID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e       models.AuditEntry
			changes []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.AssetID, &e.Action, &e.EntityType, &e.EntityID, &changes, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			if err := e.Changes.Scan(changes); err != nil {
				return nil, fmt.Errorf("decode audit changes: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// assetArgs lists the writable columns in insert order
func assetArgs(a *models.Asset) []any {
	return []any{
		a.AssetTag, a.AssetType, a.Name, a.Manufacturer, a.Model, a.SerialNumber,
		a.PurchaseDate.TimePtr(), a.PurchasePrice, a.WarrantyEnd.TimePtr(), a.Vendor, a.PONumber,
		a.Status, a.PriorStatus, a.AssignedTo, a.AssignedDate.TimePtr(),
		a.DecommissionDate.TimePtr(), a.DecommissionReason, a.Notes, a.Location,
	}
}

// txStore implements inventory.Tx inside one pgx transaction
type txStore struct {
	reader
}

func (t *txStore) LockAsset(ctx context.Context, id int64) (models.Asset, error) {
	return t.getAsset(ctx, id, true)
}

func (t *txStore) LockAssetsByEmployee(ctx context.Context, employeeID int64) ([]models.Asset, error) {
	return t.queryAssets(ctx, `SELECT`+assetColumns+assetFrom+`
		WHERE a.assigned_to = $1
		ORDER BY a.id
		FOR UPDATE OF a`, employeeID)
}

func (t *txStore) InsertAsset(ctx context.Context, a *models.Asset) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO assets (asset_tag, asset_type, name, manufacturer, model, serial_number,
			purchase_date, purchase_price, warranty_end, vendor, po_number,
			status, prior_status, assigned_to, assigned_date,
			decommission_date, decommission_reason, notes, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`, assetArgs(a)...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

func (t *txStore) UpdateAsset(ctx context.Context, a *models.Asset) error {
	args := append(assetArgs(a), a.ID)
	err := t.q.QueryRow(ctx, `
		UPDATE assets SET asset_tag = $1, asset_type = $2, name = $3, manufacturer = $4, model = $5,
			serial_number = $6, purchase_date = $7, purchase_price = $8, warranty_end = $9,
			vendor = $10, po_number = $11, status = $12, prior_status = $13, assigned_to = $14,
			assigned_date = $15, decommission_date = $16, decommission_reason = $17,
			notes = $18, location = $19, updated_at = now()
		WHERE id = $20
		RETURNING updated_at`, args...).Scan(&a.UpdatedAt)
	if err != nil {
		return notFound(err, "asset %d not found", a.ID)
	}
	return nil
}

// DeleteAsset removes the asset; repairs cascade and audit rows keep their
// history with a null asset id.
func (t *txStore) DeleteAsset(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.NotFound("asset %d not found", id)
	}
	return nil
}

// NextAssetTag serializes tag generation per prefix with a transaction
// scoped advisory lock, then takes the highest numeric suffix in use.
func (t *txStore) NextAssetTag(ctx context.Context, at models.AssetType) (string, error) {
	prefix := at.TagPrefix()
	if _, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('asset_tag:' || $1))`, prefix); err != nil {
		return "", mapError(err)
	}
	var highest int
	err := t.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(substring(asset_tag FROM '^[A-Z]+-([0-9]+)$')::int), 0)
		FROM assets
		WHERE asset_tag LIKE $1 || '-%'`, prefix).Scan(&highest)
	if err != nil {
		return "", mapError(err)
	}
	return models.FormatAssetTag(prefix, highest+1), nil
}

func (t *txStore) AssetTagExists(ctx context.Context, tag string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assets WHERE asset_tag = $1)`, tag).Scan(&exists)
	return exists, mapError(err)
}

func (t *txStore) SerialOwner(ctx context.Context, serial string, excludeID int64) (string, error) {
	var tag string
	err := t.q.QueryRow(ctx, `SELECT asset_tag FROM assets WHERE serial_number = $1 AND id <> $2`, serial, excludeID).Scan(&tag)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	return tag, mapError(err)
}

func (t *txStore) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	changes, err := e.Changes.Value()
	if err != nil {
		return fmt.Errorf("encode audit changes: %w", err)
	}
	err = t.q.QueryRow(ctx, `
		INSERT INTO audit_log (user_id, asset_id, action, entity_type, entity_id, changes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		e.UserID, e.AssetID, e.Action, e.EntityType, e.EntityID, changes).Scan(&e.ID, &e.CreatedAt)
	return mapError(err)
}
