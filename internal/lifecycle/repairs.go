package lifecycle

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"it-inventory-api/internal/models"
)

// FrequentRepairThreshold is the repair count at which an asset is flagged.
const FrequentRepairThreshold = 3

// RepairSummary aggregates the repair history of one asset or a fleet.
type RepairSummary struct {
	Count          int     `json:"count"`
	TotalCost      float64 `json:"total_cost"`
	WarrantyCount  int     `json:"warranty_count"`
	PaidCount      int     `json:"paid_count"`
	PaidCost       float64 `json:"paid_cost"`
	FrequentRepair bool    `json:"frequent_repair"`
}

// AggregateRepairs summarises repair records. Warranty repairs never count
// toward cost whatever amount is stored on them. Sums are kept in integer
// cents so the result does not depend on record order.
func AggregateRepairs(records []models.Repair) RepairSummary {
	var (
		s     RepairSummary
		cents int64
	)
	for _, r := range records {
		s.Count++
		if r.IsWarrantyRepair {
			s.WarrantyCount++
			continue
		}
		s.PaidCount++
		cents += toCents(r.Cost)
	}
	s.PaidCost = float64(cents) / 100
	s.TotalCost = s.PaidCost
	s.FrequentRepair = s.Count >= FrequentRepairThreshold
	return s
}

// AggregateByAsset groups fleet-level records and summarises each asset.
func AggregateByAsset(records []models.Repair) map[int64]RepairSummary {
	grouped := lo.GroupBy(records, func(r models.Repair) int64 { return r.AssetID })
	return lo.MapValues(grouped, func(rs []models.Repair, _ int64) RepairSummary {
		return AggregateRepairs(rs)
	})
}

// NormalizeRepair validates a new repair record and applies the warranty
// rule. A zero repair date defaults to today.
func NormalizeRepair(assetID int64, in *models.Repair, today models.Date) (models.Repair, error) {
	if in == nil {
		return models.Repair{}, Validation("repair details are required")
	}
	r := *in
	r.AssetID = assetID
	r.IssueDescription = strings.TrimSpace(r.IssueDescription)
	if r.IssueDescription == "" {
		return models.Repair{}, Validation("issue description is required")
	}
	if r.Cost < 0 || math.IsNaN(r.Cost) || math.IsInf(r.Cost, 0) {
		return models.Repair{}, Validation("repair cost must be a non-negative amount")
	}
	if r.IsWarrantyRepair {
		r.Cost = 0
	}
	r.Cost = float64(toCents(r.Cost)) / 100
	if r.RepairDate.IsZero() {
		r.RepairDate = today
	}
	return r, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
