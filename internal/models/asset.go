package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AssetType is the hardware category of an asset
type AssetType string

const (
	AssetTypeLaptop   AssetType = "laptop"
	AssetTypeMonitor  AssetType = "monitor"
	AssetTypeDock     AssetType = "dock"
	AssetTypeHeadset  AssetType = "headset"
	AssetTypeCamera   AssetType = "camera"
	AssetTypeKeyboard AssetType = "keyboard"
	AssetTypeMouse    AssetType = "mouse"
	AssetTypeOther    AssetType = "other"
)

// AssetTypes lists every known asset type in display order
var AssetTypes = []AssetType{
	AssetTypeLaptop,
	AssetTypeMonitor,
	AssetTypeDock,
	AssetTypeHeadset,
	AssetTypeCamera,
	AssetTypeKeyboard,
	AssetTypeMouse,
	AssetTypeOther,
}

var assetTagPrefixes = map[AssetType]string{
	AssetTypeLaptop:   "LAP",
	AssetTypeMonitor:  "MON",
	AssetTypeDock:     "DCK",
	AssetTypeHeadset:  "HEAD",
	AssetTypeCamera:   "CAM",
	AssetTypeKeyboard: "KEY",
	AssetTypeMouse:    "MOU",
	AssetTypeOther:    "OTH",
}

// Valid reports whether t is a known asset type
func (t AssetType) Valid() bool {
	_, ok := assetTagPrefixes[t]
	return ok
}

// TagPrefix returns the asset tag prefix for the type, e.g. LAP for laptops.
func (t AssetType) TagPrefix() string {
	if p, ok := assetTagPrefixes[t]; ok {
		return p
	}
	return assetTagPrefixes[AssetTypeOther]
}

// FormatAssetTag builds a tag such as LAP-007.
func FormatAssetTag(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// AssetStatus is the lifecycle state of an asset
type AssetStatus string

const (
	StatusAvailable      AssetStatus = "available"
	StatusActive         AssetStatus = "active"
	StatusRepair         AssetStatus = "repair"
	StatusDecommissioned AssetStatus = "decommissioned"
)

// Valid reports whether s is a known status
func (s AssetStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusActive, StatusRepair, StatusDecommissioned:
		return true
	}
	return false
}

// Asset represents the core asset record
type Asset struct {
	ID                 int64        `json:"id"`
	AssetTag           string       `json:"asset_tag"`
	AssetType          AssetType    `json:"asset_type"`
	Name               string       `json:"name"`
	Manufacturer       *string      `json:"manufacturer,omitempty"`
	Model              *string      `json:"model,omitempty"`
	SerialNumber       *string      `json:"serial_number,omitempty"`
	PurchaseDate       *Date        `json:"purchase_date,omitempty"`
	PurchasePrice      *float64     `json:"purchase_price,omitempty"`
	WarrantyEnd        *Date        `json:"warranty_end,omitempty"`
	Vendor             *string      `json:"vendor,omitempty"`
	PONumber           *string      `json:"po_number,omitempty"`
	Status             AssetStatus  `json:"status"`
	PriorStatus        *AssetStatus `json:"prior_status,omitempty"`
	AssignedTo         *int64       `json:"assigned_to,omitempty"`
	AssignedToName     *string      `json:"assigned_to_name,omitempty"`
	AssignedDate       *Date        `json:"assigned_date,omitempty"`
	DecommissionDate   *Date        `json:"decommission_date,omitempty"`
	DecommissionReason *string      `json:"decommission_reason,omitempty"`
	Notes              *string      `json:"notes,omitempty"`
	Location           *string      `json:"location,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Repairs            []Repair     `json:"repairs,omitempty"`
}

// Assigned reports whether the asset is held by an employee
func (a Asset) Assigned() bool {
	return a.AssignedTo != nil
}

// CreateAssetRequest represents the request body for creating a new asset
type CreateAssetRequest struct {
	AssetTag      *string   `json:"asset_tag,omitempty"`
	AssetType     AssetType `json:"asset_type"`
	Name          string    `json:"name"`
	Manufacturer  *string   `json:"manufacturer,omitempty"`
	Model         *string   `json:"model,omitempty"`
	SerialNumber  *string   `json:"serial_number,omitempty"`
	PurchaseDate  *Date     `json:"purchase_date,omitempty"`
	PurchasePrice *float64  `json:"purchase_price,omitempty"`
	WarrantyEnd   *Date     `json:"warranty_end,omitempty"`
	Vendor        *string   `json:"vendor,omitempty"`
	PONumber      *string   `json:"po_number,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Location      *string   `json:"location,omitempty"`
}

// UpdateAssetRequest represents the request body for updating an asset.
// Status is deliberately absent: it only changes through lifecycle actions.
type UpdateAssetRequest struct {
	AssetType     *AssetType `json:"asset_type,omitempty"`
	Name          *string    `json:"name,omitempty"`
	Manufacturer  *string    `json:"manufacturer,omitempty"`
	Model         *string    `json:"model,omitempty"`
	SerialNumber  *string    `json:"serial_number,omitempty"`
	PurchaseDate  *Date      `json:"purchase_date,omitempty"`
	PurchasePrice *float64   `json:"purchase_price,omitempty"`
	WarrantyEnd   *Date      `json:"warranty_end,omitempty"`
	Vendor        *string    `json:"vendor,omitempty"`
	PONumber      *string    `json:"po_number,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Location      *string    `json:"location,omitempty"`
}

// AssignRequest assigns an asset; a null employee_id unassigns it.
type AssignRequest struct {
	EmployeeID *int64 `json:"employee_id"`
}

// DecommissionRequest carries the mandatory decommission reason
type DecommissionRequest struct {
	Reason string `json:"reason"`
}

// AssetFilter narrows asset listings
type AssetFilter struct {
	Type       *AssetType
	Status     *AssetStatus
	Assigned   *bool
	EmployeeID *int64
	Query      string
	Sort       string
	Limit      int
	Offset     int
}

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}
