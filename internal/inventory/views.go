package inventory

import (
	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

// AssetView is an asset with its derived repair and warranty figures
type AssetView struct {
	models.Asset
	RepairCount           int            `json:"repair_count"`
	TotalRepairCost       float64        `json:"total_repair_cost"`
	FrequentRepair        bool           `json:"frequent_repair"`
	WarrantyStatus        lifecycle.Tier `json:"warranty_status"`
	WarrantyDaysRemaining *int           `json:"warranty_days_remaining,omitempty"`
}

// AssetDetail is the single-asset view with repairs and the holder
type AssetDetail struct {
	AssetView
	AssignedEmployee *models.Employee        `json:"assigned_employee,omitempty"`
	RepairSummary    lifecycle.RepairSummary `json:"repair_summary"`
}

type EmployeeDetail struct {
	models.Employee
	Assets []AssetView `json:"assets"`
}

// DashboardStats are fleet-wide counters. Warranty counters skip
// decommissioned assets.
type DashboardStats struct {
	TotalAssets          int              `json:"total_assets"`
	ActiveAssets         int              `json:"active_assets"`
	AvailableAssets      int              `json:"available_assets"`
	InRepair             int              `json:"in_repair"`
	Decommissioned       int              `json:"decommissioned"`
	WarrantiesExpiring30 int              `json:"warranties_expiring_30"`
	WarrantiesExpiring90 int              `json:"warranties_expiring_90"`
	WarrantiesExpired    int              `json:"warranties_expired"`
	TotalRepairCosts     float64          `json:"total_repair_costs"`
	AssetsByType         map[string]int   `json:"assets_by_type"`
	FrequentRepairAssets int              `json:"frequent_repair_assets"`
	LastSweep            *models.SweepRun `json:"last_sweep,omitempty"`
}

type WarrantyAlert struct {
	Asset         AssetView      `json:"asset"`
	DaysRemaining int            `json:"days_remaining"`
	Status        lifecycle.Tier `json:"status"`
}

// SweepReport describes the outcome of one warranty sweep
type SweepReport struct {
	RunID         string                 `json:"run_id,omitempty"`
	RunDate       models.Date            `json:"run_date"`
	Skipped       bool                   `json:"skipped"`
	Reason        string                 `json:"reason,omitempty"`
	Notifications int                    `json:"notifications"`
	Recipients    int                    `json:"recipients"`
	EmailsSent    int                    `json:"emails_sent"`
	EmailsFailed  int                    `json:"emails_failed"`
	ByTier        map[lifecycle.Tier]int `json:"by_tier,omitempty"`
}

func (s *Service) view(a models.Asset) AssetView {
	sum := lifecycle.AggregateRepairs(a.Repairs)
	tier, days := lifecycle.ClassifyWarranty(a.WarrantyEnd, s.now())
	v := AssetView{
		Asset:           a,
		RepairCount:     sum.Count,
		TotalRepairCost: sum.TotalCost,
		FrequentRepair:  sum.FrequentRepair,
		WarrantyStatus:  tier,
	}
	if tier != lifecycle.TierNone {
		v.WarrantyDaysRemaining = &days
	}
	return v
}

// listView drops the repair history, which only the detail view carries.
func (s *Service) listView(a models.Asset) AssetView {
	v := s.view(a)
	v.Repairs = nil
	return v
}

func (s *Service) listViews(assets []models.Asset) []AssetView {
	out := make([]AssetView, len(assets))
	for i, a := range assets {
		out[i] = s.listView(a)
	}
	return out
}
