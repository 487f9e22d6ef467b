package lifecycle

import (
	"slices"
	"sort"
	"time"

	"it-inventory-api/internal/models"
)

// Notification is one warranty alert for one asset.
type Notification struct {
	AssetID        int64            `json:"asset_id"`
	AssetTag       string           `json:"asset_tag"`
	AssetName      string           `json:"asset_name"`
	AssetType      models.AssetType `json:"asset_type"`
	SerialNumber   *string          `json:"serial_number,omitempty"`
	AssignedToName *string          `json:"assigned_to_name,omitempty"`
	WarrantyEnd    models.Date      `json:"warranty_end"`
	Tier           Tier             `json:"tier"`
	DaysRemaining  int              `json:"days_remaining"`
	Recipients     []string         `json:"recipients"`
}

// Sweep classifies every non-decommissioned asset with a warranty end date
// and returns one notification per asset in an alerting tier, most urgent
// first. The result depends only on the assets and the calendar date of now.
func Sweep(assets []models.Asset, now time.Time, recipients []string) []Notification {
	out := make([]Notification, 0)
	for _, a := range assets {
		if a.Status == models.StatusDecommissioned || a.WarrantyEnd == nil {
			continue
		}
		tier, days := ClassifyWarranty(a.WarrantyEnd, now)
		if !tier.Alerting() {
			continue
		}
		out = append(out, Notification{
			AssetID:        a.ID,
			AssetTag:       a.AssetTag,
			AssetName:      a.Name,
			AssetType:      a.AssetType,
			SerialNumber:   a.SerialNumber,
			AssignedToName: a.AssignedToName,
			WarrantyEnd:    *a.WarrantyEnd,
			Tier:           tier,
			DaysRemaining:  days,
			Recipients:     slices.Clone(recipients),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysRemaining != out[j].DaysRemaining {
			return out[i].DaysRemaining < out[j].DaysRemaining
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

// GroupByTier splits notifications by tier, keeping their order.
func GroupByTier(notes []Notification) map[Tier][]Notification {
	groups := make(map[Tier][]Notification)
	for _, n := range notes {
		groups[n.Tier] = append(groups[n.Tier], n)
	}
	return groups
}
