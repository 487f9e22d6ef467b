package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tealeg/xlsx/v3"

	"it-inventory-api/internal/models"
)

// AssetColumns is the header of an asset export
var AssetColumns = []string{
	"Asset Tag", "Type", "Name", "Manufacturer", "Model", "Serial Number",
	"Purchase Date", "Purchase Price", "Warranty End", "Vendor", "PO Number",
	"Status", "Assigned To", "Assigned Date", "Location", "Notes",
	"Decommission Date", "Decommission Reason",
}

// EmployeeColumns is the header of an employee export
var EmployeeColumns = []string{
	"Employee ID", "Email", "Full Name", "Department", "Location", "Manager", "Active",
}

// TemplateColumns is the header of the blank asset import template.
// Starred columns are required.
var TemplateColumns = []string{
	"Type*", "Name*", "Manufacturer", "Model", "Serial Number*",
	"Purchase Date", "Purchase Price", "Warranty End", "Vendor",
	"PO Number", "Location", "Notes",
}

var templateExample = []string{
	"laptop", "Dell Latitude 5540", "Dell", "Latitude 5540", "ABC123XYZ",
	"2024-01-15", "1299.99", "2027-01-15", "Dell Direct",
	"PO-2024-001", "Main Office", "Standard config",
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func price(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// AssetRow flattens an asset into export columns
func AssetRow(a models.Asset) []string {
	return []string{
		a.AssetTag,
		string(a.AssetType),
		a.Name,
		str(a.Manufacturer),
		str(a.Model),
		str(a.SerialNumber),
		date(a.PurchaseDate),
		price(a.PurchasePrice),
		date(a.WarrantyEnd),
		str(a.Vendor),
		str(a.PONumber),
		string(a.Status),
		str(a.AssignedToName),
		date(a.AssignedDate),
		str(a.Location),
		str(a.Notes),
		date(a.DecommissionDate),
		str(a.DecommissionReason),
	}
}

// EmployeeRow flattens an employee into export columns
func EmployeeRow(e models.Employee) []string {
	active := "No"
	if e.IsActive {
		active = "Yes"
	}
	return []string{
		str(e.EmployeeID),
		e.Email,
		e.FullName,
		str(e.Department),
		str(e.Location),
		str(e.Manager),
		active,
	}
}

func WriteAssets(w io.Writer, f Format, assets []models.Asset) error {
	rows := make([][]string, len(assets))
	for i, a := range assets {
		rows[i] = AssetRow(a)
	}
	return writeTable(w, f, "Assets", AssetColumns, rows)
}

func WriteEmployees(w io.Writer, f Format, employees []models.Employee) error {
	rows := make([][]string, len(employees))
	for i, e := range employees {
		rows[i] = EmployeeRow(e)
	}
	return writeTable(w, f, "Employees", EmployeeColumns, rows)
}

// WriteAssetTemplate writes the import template with one example row
func WriteAssetTemplate(w io.Writer, f Format) error {
	return writeTable(w, f, "Assets", TemplateColumns, [][]string{templateExample})
}

func writeTable(w io.Writer, f Format, sheetName string, header []string, rows [][]string) error {
	switch f {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	case FormatXLSX:
		file := xlsx.NewFile()
		sheet, err := file.AddSheet(sheetName)
		if err != nil {
			return fmt.Errorf("add sheet: %w", err)
		}
		for _, rec := range append([][]string{header}, rows...) {
			row := sheet.AddRow()
			for _, v := range rec {
				row.AddCell().SetString(v)
			}
		}
		if err := file.Write(w); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		return nil
	}
	return ErrUnsupportedFormat
}
