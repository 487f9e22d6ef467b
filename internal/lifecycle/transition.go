package lifecycle

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"it-inventory-api/internal/models"
)

// Action is a lifecycle state change requested on an asset
type Action string

const (
	ActionAssign       Action = "assign"
	ActionUnassign     Action = "unassign"
	ActionLogRepair    Action = "log-repair"
	ActionMarkFixed    Action = "mark-fixed"
	ActionDecommission Action = "decommission"
)

// MinDecommissionReasonLen is the minimum length of a trimmed decommission reason.
const MinDecommissionReasonLen = 10

// Params carries the inputs an action needs. Now is the caller's clock
// reading and determines every date the action records.
type Params struct {
	Employee *models.Employee
	Repair   *models.Repair
	Reason   string
	Now      time.Time
}

// Transition applies action to asset and returns the updated asset. On error
// the input asset is returned unchanged; the caller's copy is never mutated.
func Transition(asset models.Asset, action Action, p Params) (models.Asset, error) {
	if asset.Status == models.StatusDecommissioned {
		return asset, InvalidTransition("asset %s is decommissioned and cannot %s", asset.AssetTag, action)
	}

	next := asset
	today := models.DateOf(p.Now)

	switch action {
	case ActionAssign:
		if asset.Status != models.StatusAvailable && asset.Status != models.StatusActive {
			return asset, InvalidTransition("cannot assign asset %s while it is %s", asset.AssetTag, asset.Status)
		}
		if p.Employee == nil {
			return asset, NotFound("employee not found")
		}
		if !p.Employee.IsActive {
			return asset, InactiveEmployee("cannot assign to inactive employee %s", p.Employee.FullName)
		}
		id := p.Employee.ID
		name := p.Employee.FullName
		next.Status = models.StatusActive
		next.AssignedTo = &id
		next.AssignedToName = &name
		next.AssignedDate = &today

	case ActionUnassign:
		if asset.Status != models.StatusActive {
			return asset, InvalidTransition("cannot unassign asset %s while it is %s", asset.AssetTag, asset.Status)
		}
		next.Status = models.StatusAvailable
		clearAssignment(&next)

	case ActionLogRepair:
		if asset.Status != models.StatusAvailable && asset.Status != models.StatusActive {
			return asset, InvalidTransition("cannot log a repair for asset %s while it is %s", asset.AssetTag, asset.Status)
		}
		rec, err := NormalizeRepair(asset.ID, p.Repair, today)
		if err != nil {
			return asset, err
		}
		prior := asset.Status
		next.PriorStatus = &prior
		next.Status = models.StatusRepair
		next.Repairs = append(slices.Clip(asset.Repairs), rec)

	case ActionMarkFixed:
		if asset.Status != models.StatusRepair {
			return asset, InvalidTransition("asset %s is not in repair", asset.AssetTag)
		}
		next.Status = restoredStatus(asset)
		next.PriorStatus = nil

	case ActionDecommission:
		reason := strings.TrimSpace(p.Reason)
		if utf8.RuneCountInString(reason) < MinDecommissionReasonLen {
			return asset, Validation("decommission reason must be at least %d characters", MinDecommissionReasonLen)
		}
		next.Status = models.StatusDecommissioned
		next.DecommissionReason = &reason
		next.DecommissionDate = &today
		next.PriorStatus = nil
		clearAssignment(&next)

	default:
		return asset, Validation("unknown action %q", action)
	}

	return next, nil
}

// Release detaches an asset from its employee, as when the employee is
// deactivated. An active asset becomes available; an asset in repair stays
// in repair but will come back as available. The second result is false
// when there was nothing to release.
func Release(asset models.Asset) (models.Asset, bool) {
	if asset.AssignedTo == nil || asset.Status == models.StatusDecommissioned {
		return asset, false
	}
	next := asset
	switch asset.Status {
	case models.StatusActive:
		next.Status = models.StatusAvailable
	case models.StatusRepair:
		available := models.StatusAvailable
		next.PriorStatus = &available
	}
	clearAssignment(&next)
	return next, true
}

// restoredStatus is the status an asset returns to after repair. An asset
// that lost its holder while in repair comes back available.
func restoredStatus(asset models.Asset) models.AssetStatus {
	if asset.PriorStatus != nil {
		if *asset.PriorStatus == models.StatusActive && asset.AssignedTo == nil {
			return models.StatusAvailable
		}
		return *asset.PriorStatus
	}
	if asset.AssignedTo != nil {
		return models.StatusActive
	}
	return models.StatusAvailable
}

func clearAssignment(a *models.Asset) {
	a.AssignedTo = nil
	a.AssignedToName = nil
	a.AssignedDate = nil
}
