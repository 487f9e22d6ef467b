package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	assets, _, err := s.store.ListAssets(ctx, models.AssetFilter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list assets: %w", err)
	}
	repairs, err := s.store.ListAllRepairs(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list repairs: %w", err)
	}
	last, err := s.store.LastSweepRun(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("last sweep run: %w", err)
	}

	now := s.now()
	stats := DashboardStats{
		TotalAssets:      len(assets),
		AssetsByType:     make(map[string]int),
		TotalRepairCosts: lifecycle.AggregateRepairs(repairs).TotalCost,
		LastSweep:        last,
	}
	for _, a := range assets {
		switch a.Status {
		case models.StatusActive:
			stats.ActiveAssets++
		case models.StatusAvailable:
			stats.AvailableAssets++
		case models.StatusRepair:
			stats.InRepair++
		case models.StatusDecommissioned:
			stats.Decommissioned++
			continue
		}
		stats.AssetsByType[string(a.AssetType)]++

		switch tier, _ := lifecycle.ClassifyWarranty(a.WarrantyEnd, now); tier {
		case lifecycle.TierExpired:
			stats.WarrantiesExpired++
		case lifecycle.TierCritical:
			stats.WarrantiesExpiring30++
		case lifecycle.TierWarning:
			stats.WarrantiesExpiring90++
		}
	}
	for _, sum := range lifecycle.AggregateByAsset(repairs) {
		if sum.FrequentRepair {
			stats.FrequentRepairAssets++
		}
	}
	return stats, nil
}

// WarrantyAlerts lists assets whose warranty is expired or ends within the
// warning window, most urgent first.
func (s *Service) WarrantyAlerts(ctx context.Context) ([]WarrantyAlert, error) {
	assets, err := s.store.ListSweepCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	byID := lo.KeyBy(assets, func(a models.Asset) int64 { return a.ID })

	notes := lifecycle.Sweep(assets, s.now(), nil)
	alerts := make([]WarrantyAlert, 0, len(notes))
	for _, n := range notes {
		alerts = append(alerts, WarrantyAlert{
			Asset:         s.listView(byID[n.AssetID]),
			DaysRemaining: n.DaysRemaining,
			Status:        n.Tier,
		})
	}
	return alerts, nil
}

func (s *Service) RecentRepairs(ctx context.Context, limit int) ([]models.RecentRepair, error) {
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, 100)
	repairs, err := s.store.RecentRepairs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent repairs: %w", err)
	}
	return repairs, nil
}

// FrequentRepairs lists assets at or over the frequent repair threshold,
// most repaired first.
func (s *Service) FrequentRepairs(ctx context.Context) ([]AssetView, error) {
	assets, _, err := s.store.ListAssets(ctx, models.AssetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	views := lo.Filter(s.listViews(assets), func(v AssetView, _ int) bool {
		return v.FrequentRepair
	})
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].RepairCount != views[j].RepairCount {
			return views[i].RepairCount > views[j].RepairCount
		}
		return views[i].AssetTag < views[j].AssetTag
	})
	return views, nil
}
