package models

import "time"

// Repair is an append-only repair log entry
type Repair struct {
	ID               int64     `json:"id"`
	AssetID          int64     `json:"asset_id"`
	RepairDate       Date      `json:"repair_date"`
	IssueDescription string    `json:"issue_description"`
	Resolution       *string   `json:"resolution,omitempty"`
	Cost             float64   `json:"cost"`
	IsWarrantyRepair bool      `json:"is_warranty_repair"`
	Vendor           *string   `json:"vendor,omitempty"`
	TicketNumber     *string   `json:"ticket_number,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateRepairRequest represents the request body for logging a repair
type CreateRepairRequest struct {
	RepairDate       *Date   `json:"repair_date,omitempty"`
	IssueDescription string  `json:"issue_description"`
	Resolution       *string `json:"resolution,omitempty"`
	Cost             float64 `json:"cost"`
	IsWarrantyRepair bool    `json:"is_warranty_repair"`
	Vendor           *string `json:"vendor,omitempty"`
	TicketNumber     *string `json:"ticket_number,omitempty"`
}

// Repair converts the request into an unsaved repair record
func (r CreateRepairRequest) Repair() Repair {
	rec := Repair{
		IssueDescription: r.IssueDescription,
		Resolution:       r.Resolution,
		Cost:             r.Cost,
		IsWarrantyRepair: r.IsWarrantyRepair,
		Vendor:           r.Vendor,
		TicketNumber:     r.TicketNumber,
	}
	if r.RepairDate != nil {
		rec.RepairDate = *r.RepairDate
	}
	return rec
}

// RecentRepair is a repair joined with the asset it belongs to
type RecentRepair struct {
	Repair
	AssetTag  string    `json:"asset_tag"`
	AssetName string    `json:"asset_name"`
	AssetType AssetType `json:"asset_type"`
}
