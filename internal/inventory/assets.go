package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
	"it-inventory-api/internal/notify"
)

func (s *Service) ListAssets(ctx context.Context, f models.AssetFilter) ([]AssetView, int, error) {
	assets, total, err := s.store.ListAssets(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	return s.listViews(assets), total, nil
}

func (s *Service) GetAsset(ctx context.Context, id int64) (AssetDetail, error) {
	a, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return AssetDetail{}, err
	}
	d := AssetDetail{
		AssetView:     s.view(a),
		RepairSummary: lifecycle.AggregateRepairs(a.Repairs),
	}
	if a.AssignedTo != nil {
		e, err := s.store.GetEmployee(ctx, *a.AssignedTo)
		switch {
		case err == nil:
			d.AssignedEmployee = &e
		case !errors.Is(err, lifecycle.ErrNotFound):
			return AssetDetail{}, fmt.Errorf("load assigned employee: %w", err)
		}
	}
	return d, nil
}

func (s *Service) ListRepairs(ctx context.Context, assetID int64) ([]models.Repair, error) {
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListRepairs(ctx, assetID)
}

// History returns the audit trail of an asset, newest first
func (s *Service) History(ctx context.Context, assetID int64) ([]models.AuditEntry, error) {
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, assetID)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func validPrice(p *float64) bool {
	return p == nil || (*p >= 0 && !math.IsNaN(*p) && !math.IsInf(*p, 0))
}

func (s *Service) CreateAsset(ctx context.Context, actor Actor, req models.CreateAssetRequest) (AssetView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return AssetView{}, lifecycle.Validation("name is required")
	}
	if !req.AssetType.Valid() {
		return AssetView{}, lifecycle.Validation("invalid asset type %q", req.AssetType)
	}
	if !validPrice(req.PurchasePrice) {
		return AssetView{}, lifecycle.Validation("purchase price must be a non-negative amount")
	}

	a := models.Asset{
		AssetType:     req.AssetType,
		Name:          name,
		Manufacturer:  trimmed(req.Manufacturer),
		Model:         trimmed(req.Model),
		SerialNumber:  trimmed(req.SerialNumber),
		PurchaseDate:  req.PurchaseDate,
		PurchasePrice: req.PurchasePrice,
		WarrantyEnd:   req.WarrantyEnd,
		Vendor:        trimmed(req.Vendor),
		PONumber:      trimmed(req.PONumber),
		Notes:         trimmed(req.Notes),
		Location:      trimmed(req.Location),
		Status:        models.StatusAvailable,
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if a.SerialNumber != nil {
			owner, err := tx.SerialOwner(ctx, *a.SerialNumber, 0)
			if err != nil {
				return err
			}
			if owner != "" {
				return lifecycle.Conflict("Serial number already exists (Asset: %s)", owner)
			}
		}

		if tag := trimmed(req.AssetTag); tag != nil {
			a.AssetTag = *tag
		} else {
			tag, err := tx.NextAssetTag(ctx, a.AssetType)
			if err != nil {
				return fmt.Errorf("generate asset tag: %w", err)
			}
			a.AssetTag = tag
		}
		exists, err := tx.AssetTagExists(ctx, a.AssetTag)
		if err != nil {
			return err
		}
		if exists {
			return lifecycle.Conflict("Asset tag %s already exists", a.AssetTag)
		}

		if err := tx.InsertAsset(ctx, &a); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
		return s.audit(ctx, tx, actor, models.AuditCreate, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"asset_tag":  a.AssetTag,
			"asset_type": string(a.AssetType),
			"name":       a.Name,
		})
	})
	if err != nil {
		return AssetView{}, err
	}

	s.log.WithField("asset_id", a.ID).WithField("asset_tag", a.AssetTag).Info("asset created")
	return s.listView(a), nil
}

// changeSet records old/new pairs for the audit log
type changeSet models.JSONB

func (c changeSet) add(field string, before, after any) {
	c[field] = map[string]any{"old": before, "new": after}
}

func (c changeSet) setString(field string, dst **string, src *string) {
	if src == nil {
		return
	}
	next := trimmed(src)
	if lo.FromPtr(*dst) == lo.FromPtr(next) {
		return
	}
	c.add(field, lo.FromPtr(*dst), lo.FromPtr(next))
	*dst = next
}

// setDate treats a zero date as a request to clear the field.
func (c changeSet) setDate(field string, dst **models.Date, src *models.Date) {
	if src == nil {
		return
	}
	var next *models.Date
	if !src.IsZero() {
		d := *src
		next = &d
	}
	oldStr, newStr := "", ""
	if *dst != nil {
		oldStr = (*dst).String()
	}
	if next != nil {
		newStr = next.String()
	}
	if oldStr == newStr {
		return
	}
	c.add(field, oldStr, newStr)
	*dst = next
}

func (c changeSet) setFloat(field string, dst **float64, src *float64) {
	if src == nil {
		return
	}
	if *dst != nil && **dst == *src {
		return
	}
	c.add(field, *dst, *src)
	v := *src
	*dst = &v
}

// UpdateAsset changes descriptive attributes only. Status, assignment
// and decommission fields move through the lifecycle operations.
func (s *Service) UpdateAsset(ctx context.Context, actor Actor, id int64, req models.UpdateAssetRequest) (AssetView, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return AssetView{}, lifecycle.Validation("name cannot be empty")
	}
	if req.AssetType != nil && !req.AssetType.Valid() {
		return AssetView{}, lifecycle.Validation("invalid asset type %q", *req.AssetType)
	}
	if !validPrice(req.PurchasePrice) {
		return AssetView{}, lifecycle.Validation("purchase price must be a non-negative amount")
	}

	var updated models.Asset
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}

		changes := changeSet{}
		if req.Name != nil {
			if name := strings.TrimSpace(*req.Name); name != a.Name {
				changes.add("name", a.Name, name)
				a.Name = name
			}
		}
		if req.AssetType != nil && *req.AssetType != a.AssetType {
			changes.add("asset_type", string(a.AssetType), string(*req.AssetType))
			a.AssetType = *req.AssetType
		}
		changes.setString("manufacturer", &a.Manufacturer, req.Manufacturer)
		changes.setString("model", &a.Model, req.Model)
		changes.setString("serial_number", &a.SerialNumber, req.SerialNumber)
		changes.setDate("purchase_date", &a.PurchaseDate, req.PurchaseDate)
		changes.setFloat("purchase_price", &a.PurchasePrice, req.PurchasePrice)
		changes.setDate("warranty_end", &a.WarrantyEnd, req.WarrantyEnd)
		changes.setString("vendor", &a.Vendor, req.Vendor)
		changes.setString("po_number", &a.PONumber, req.PONumber)
		changes.setString("notes", &a.Notes, req.Notes)
		changes.setString("location", &a.Location, req.Location)

		if len(changes) == 0 {
			updated = a
			return nil
		}
		if _, ok := changes["serial_number"]; ok && a.SerialNumber != nil {
			owner, err := tx.SerialOwner(ctx, *a.SerialNumber, a.ID)
			if err != nil {
				return err
			}
			if owner != "" {
				return lifecycle.Conflict("Serial number already exists (Asset: %s)", owner)
			}
		}

		if err := tx.UpdateAsset(ctx, &a); err != nil {
			return fmt.Errorf("update asset: %w", err)
		}
		updated = a
		return s.audit(ctx, tx, actor, models.AuditUpdate, models.EntityAsset, a.ID, &a.ID, models.JSONB(changes))
	})
	if err != nil {
		return AssetView{}, err
	}
	return s.listView(updated), nil
}

// DeleteAsset removes an asset permanently. Decommissioning is the normal
// way to retire hardware; deletion is kept for records created by mistake.
func (s *Service) DeleteAsset(ctx context.Context, actor Actor, id int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditDelete, models.EntityAsset, a.ID, nil, models.JSONB{"asset_tag": a.AssetTag}); err != nil {
			return err
		}
		return tx.DeleteAsset(ctx, a.ID)
	})
}

// applyTransition runs the guard on a locked asset and stores the result.
func (s *Service) applyTransition(ctx context.Context, tx Tx, asset models.Asset, action lifecycle.Action, p lifecycle.Params) (models.Asset, error) {
	p.Now = s.now()
	next, err := lifecycle.Transition(asset, action, p)
	s.metrics.transition(action, err)
	if err != nil {
		return asset, err
	}
	if err := tx.UpdateAsset(ctx, &next); err != nil {
		return asset, fmt.Errorf("update asset: %w", err)
	}
	return next, nil
}

// Assign gives the asset to an employee. A nil employee id unassigns it.
// The employee is emailed after the change commits; a failed email never
// fails the assignment.
func (s *Service) Assign(ctx context.Context, actor Actor, id int64, employeeID *int64) (AssetView, error) {
	if employeeID == nil {
		return s.Unassign(ctx, actor, id)
	}

	var (
		assigned models.Asset
		employee models.Employee
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		// Employee before asset, the same order deactivation locks in.
		e, err := tx.LockEmployee(ctx, *employeeID)
		if err != nil {
			s.metrics.transition(lifecycle.ActionAssign, err)
			return err
		}
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}
		previous := a.AssignedTo
		next, err := s.applyTransition(ctx, tx, a, lifecycle.ActionAssign, lifecycle.Params{Employee: &e})
		if err != nil {
			return err
		}
		assigned, employee = next, e
		return s.audit(ctx, tx, actor, models.AuditAssign, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"old_employee_id": previous,
			"new_employee_id": e.ID,
		})
	})
	if err != nil {
		return AssetView{}, err
	}

	s.log.WithField("asset_id", assigned.ID).WithField("employee_id", employee.ID).Info("asset assigned")
	s.sendAssignmentEmail(ctx, employee, assigned)
	return s.listView(assigned), nil
}

func (s *Service) sendAssignmentEmail(ctx context.Context, e models.Employee, a models.Asset) {
	log := s.log.WithField("asset_id", a.ID).WithField("employee_id", e.ID)
	subject, body, err := notify.Assignment(e, a)
	if err != nil {
		log.WithError(err).Error("render assignment email")
		return
	}
	err = s.sender.Send(ctx, []string{e.Email}, subject, body)
	s.metrics.email("assignment", err)
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		log.Debug("assignment email not sent: delivery not configured")
	case err != nil:
		log.WithError(err).Warn("assignment email failed")
	}
}

func (s *Service) Unassign(ctx context.Context, actor Actor, id int64) (AssetView, error) {
	var released models.Asset
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}
		previous := a.AssignedTo
		next, err := s.applyTransition(ctx, tx, a, lifecycle.ActionUnassign, lifecycle.Params{})
		if err != nil {
			return err
		}
		released = next
		return s.audit(ctx, tx, actor, models.AuditUnassign, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"old_employee_id": previous,
		})
	})
	if err != nil {
		return AssetView{}, err
	}
	return s.listView(released), nil
}

// LogRepair records a repair. An available or active asset moves into
// repair; an asset already in repair keeps its status and gains the record.
func (s *Service) LogRepair(ctx context.Context, actor Actor, id int64, req models.CreateRepairRequest) (models.Repair, error) {
	in := req.Repair()
	var rec models.Repair
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}

		if a.Status == models.StatusRepair {
			rec, err = lifecycle.NormalizeRepair(a.ID, &in, s.today())
			if err != nil {
				return err
			}
		} else {
			next, err := s.applyTransition(ctx, tx, a, lifecycle.ActionLogRepair, lifecycle.Params{Repair: &in})
			if err != nil {
				return err
			}
			rec = next.Repairs[len(next.Repairs)-1]
		}

		if err := tx.InsertRepair(ctx, &rec); err != nil {
			return fmt.Errorf("insert repair: %w", err)
		}
		return s.audit(ctx, tx, actor, models.AuditRepair, models.EntityRepair, rec.ID, &a.ID, models.JSONB{
			"issue_description":  rec.IssueDescription,
			"cost":               rec.Cost,
			"is_warranty_repair": rec.IsWarrantyRepair,
			"repair_date":        rec.RepairDate.String(),
		})
	})
	if err != nil {
		return models.Repair{}, err
	}
	return rec, nil
}

func (s *Service) MarkFixed(ctx context.Context, actor Actor, id int64) (AssetView, error) {
	var fixed models.Asset
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}
		next, err := s.applyTransition(ctx, tx, a, lifecycle.ActionMarkFixed, lifecycle.Params{})
		if err != nil {
			return err
		}
		fixed = next
		return s.audit(ctx, tx, actor, models.AuditMarkFixed, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"status": string(next.Status),
		})
	})
	if err != nil {
		return AssetView{}, err
	}
	return s.listView(fixed), nil
}

func (s *Service) Decommission(ctx context.Context, actor Actor, id int64, reason string) (AssetView, error) {
	var retired models.Asset
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.LockAsset(ctx, id)
		if err != nil {
			return err
		}
		next, err := s.applyTransition(ctx, tx, a, lifecycle.ActionDecommission, lifecycle.Params{Reason: reason})
		if err != nil {
			return err
		}
		retired = next
		return s.audit(ctx, tx, actor, models.AuditDecommission, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"reason":          lo.FromPtr(next.DecommissionReason),
			"previous_status": string(a.Status),
		})
	})
	if err != nil {
		return AssetView{}, err
	}
	s.log.WithField("asset_id", retired.ID).Info("asset decommissioned")
	return s.listView(retired), nil
}
