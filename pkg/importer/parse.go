package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"it-inventory-api/internal/models"
)

// AssetRecord is a validated asset row ready to be stored
type AssetRecord struct {
	Row   int
	Asset models.Asset
}

// EmployeeRecord is a validated employee row ready to be stored
type EmployeeRecord struct {
	Row      int
	Employee models.Employee
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	time.RFC3339,
}

func parseDate(value string) (models.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("invalid date format: %s", value)
}

func parsePrice(value string) (float64, error) {
	v := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid price: %s", value)
	}
	return f, nil
}

func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

func assetTypeNames() string {
	names := make([]string, len(models.AssetTypes))
	for i, t := range models.AssetTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ParseAssets validates asset rows. Unparseable optional dates and prices
// are ignored. Duplicate serial numbers within the file are rejected; the
// caller still has to check serials against stored assets.
func ParseAssets(t Table, m *MappingConfig) ([]AssetRecord, []RowError) {
	cfg := m.Entities[EntityAssets]
	idx := cfg.resolve(t.Header)
	if missing := cfg.missingColumns(idx); len(missing) > 0 {
		return nil, []RowError{{Row: 1, Message: "Missing required column(s): " + strings.Join(missing, ", ")}}
	}

	var (
		records []AssetRecord
		errs    []RowError
		serials = make(map[string]int)
	)
	for i, rec := range t.Rows {
		row := t.RowNumbers[i]
		typ := strings.ToLower(strings.TrimSpace(idx.get(rec, "type")))
		name := strings.TrimSpace(idx.get(rec, "name"))
		if typ == "" || name == "" {
			errs = append(errs, RowError{Row: row, Message: "Missing required field (Type or Name)"})
			continue
		}
		assetType := models.AssetType(typ)
		if !assetType.Valid() {
			errs = append(errs, RowError{Row: row, Message: fmt.Sprintf("Invalid asset type '%s'. Must be one of: %s", idx.get(rec, "type"), assetTypeNames())})
			continue
		}

		a := models.Asset{
			AssetType:    assetType,
			Name:         name,
			Manufacturer: optional(idx.get(rec, "manufacturer")),
			Model:        optional(idx.get(rec, "model")),
			SerialNumber: optional(idx.get(rec, "serial_number")),
			Vendor:       optional(idx.get(rec, "vendor")),
			PONumber:     optional(idx.get(rec, "po_number")),
			Location:     optional(idx.get(rec, "location")),
			Notes:        optional(idx.get(rec, "notes")),
			Status:       models.StatusAvailable,
		}
		if v := optional(idx.get(rec, "purchase_date")); v != nil {
			if d, err := parseDate(*v); err == nil {
				a.PurchaseDate = &d
			}
		}
		if v := optional(idx.get(rec, "warranty_end")); v != nil {
			if d, err := parseDate(*v); err == nil {
				a.WarrantyEnd = &d
			}
		}
		if v := optional(idx.get(rec, "purchase_price")); v != nil {
			if p, err := parsePrice(*v); err == nil {
				a.PurchasePrice = &p
			}
		}

		if a.SerialNumber != nil {
			if first, dup := serials[*a.SerialNumber]; dup {
				errs = append(errs, RowError{Row: row, Message: fmt.Sprintf("Serial number '%s' already appears in row %d", *a.SerialNumber, first)})
				continue
			}
			serials[*a.SerialNumber] = row
		}

		records = append(records, AssetRecord{Row: row, Asset: a})
	}
	return records, errs
}

// ParseEmployees validates employee rows. Emails are stored lower-case.
func ParseEmployees(t Table, m *MappingConfig) ([]EmployeeRecord, []RowError) {
	cfg := m.Entities[EntityEmployees]
	idx := cfg.resolve(t.Header)
	if missing := cfg.missingColumns(idx); len(missing) > 0 {
		return nil, []RowError{{Row: 1, Message: "Missing required column(s): " + strings.Join(missing, ", ")}}
	}

	var (
		records []EmployeeRecord
		errs    []RowError
		emails  = make(map[string]int)
	)
	for i, rec := range t.Rows {
		row := t.RowNumbers[i]
		email := strings.ToLower(strings.TrimSpace(idx.get(rec, "email")))
		fullName := strings.TrimSpace(idx.get(rec, "full_name"))
		if email == "" || fullName == "" {
			errs = append(errs, RowError{Row: row, Message: "Missing required field (Email or Full Name)"})
			continue
		}
		if !strings.Contains(email, "@") {
			errs = append(errs, RowError{Row: row, Message: fmt.Sprintf("Invalid email '%s'", email)})
			continue
		}
		if first, dup := emails[email]; dup {
			errs = append(errs, RowError{Row: row, Message: fmt.Sprintf("Email '%s' already appears in row %d", email, first)})
			continue
		}
		emails[email] = row

		records = append(records, EmployeeRecord{Row: row, Employee: models.Employee{
			EmployeeID: optional(idx.get(rec, "employee_id")),
			Email:      email,
			FullName:   fullName,
			Department: optional(idx.get(rec, "department")),
			Location:   optional(idx.get(rec, "location")),
			Manager:    optional(idx.get(rec, "manager")),
			IsActive:   true,
		}})
	}
	return records, errs
}
