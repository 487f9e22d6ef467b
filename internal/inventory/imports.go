package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
	"it-inventory-api/pkg/importer"
)

// errDryRun rolls back a dry-run import after validation
var errDryRun = errors.New("dry run")

func sortRowErrors(errs []importer.RowError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Row < errs[j].Row })
}

// ImportAssets validates and stores asset rows in one transaction. Rows
// that fail validation are reported and skipped; the rest are inserted
// with generated tags. A dry run reports the same summary and writes nothing.
func (s *Service) ImportAssets(ctx context.Context, actor Actor, r io.Reader, f importer.Format, opts importer.ImportOptions) (importer.ImportSummary, error) {
	opts = opts.WithDefaults()
	table, err := importer.ReadTable(r, f)
	if err != nil {
		return importer.ImportSummary{}, lifecycle.Validation("%s", err.Error())
	}
	records, rowErrs := importer.ParseAssets(table, s.mapping)

	var created int
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var tags []string
		for _, rec := range records {
			a := rec.Asset
			if a.SerialNumber != nil {
				owner, err := tx.SerialOwner(ctx, *a.SerialNumber, 0)
				if err != nil {
					return err
				}
				if owner != "" {
					rowErrs = append(rowErrs, importer.RowError{
						Row:     rec.Row,
						Message: fmt.Sprintf("Serial number '%s' already exists (Asset: %s)", *a.SerialNumber, owner),
					})
					continue
				}
			}
			tag, err := tx.NextAssetTag(ctx, a.AssetType)
			if err != nil {
				return fmt.Errorf("generate asset tag: %w", err)
			}
			a.AssetTag = tag
			if err := tx.InsertAsset(ctx, &a); err != nil {
				return fmt.Errorf("row %d: insert asset: %w", rec.Row, err)
			}
			tags = append(tags, a.AssetTag)
			created++
		}

		if created > 0 {
			if err := tx.InsertAudit(ctx, &models.AuditEntry{
				UserID:     actor.userID(),
				Action:     models.AuditImport,
				EntityType: models.EntityAsset,
				Changes:    models.JSONB{"created": created, "asset_tags": tags},
			}); err != nil {
				return err
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return importer.ImportSummary{}, err
	}

	sortRowErrors(rowErrs)
	summary := importer.NewSummary(created, rowErrs, opts)
	s.log.WithField("created", created).WithField("errors", len(rowErrs)).WithField("dry_run", opts.DryRun).Info("asset import finished")
	return summary, nil
}

// ImportEmployees validates and stores employee rows the same way
func (s *Service) ImportEmployees(ctx context.Context, actor Actor, r io.Reader, f importer.Format, opts importer.ImportOptions) (importer.ImportSummary, error) {
	opts = opts.WithDefaults()
	table, err := importer.ReadTable(r, f)
	if err != nil {
		return importer.ImportSummary{}, lifecycle.Validation("%s", err.Error())
	}
	records, rowErrs := importer.ParseEmployees(table, s.mapping)

	var created int
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, rec := range records {
			e := rec.Employee
			if err := checkEmployeeUnique(ctx, tx, e, 0); err != nil {
				if !errors.Is(err, lifecycle.ErrConflict) {
					return err
				}
				rowErrs = append(rowErrs, importer.RowError{Row: rec.Row, Message: lifecycle.MessageOf(err)})
				continue
			}
			if err := tx.InsertEmployee(ctx, &e); err != nil {
				return fmt.Errorf("row %d: insert employee: %w", rec.Row, err)
			}
			created++
		}

		if created > 0 {
			if err := tx.InsertAudit(ctx, &models.AuditEntry{
				UserID:     actor.userID(),
				Action:     models.AuditImport,
				EntityType: models.EntityEmployee,
				Changes:    models.JSONB{"created": created},
			}); err != nil {
				return err
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return importer.ImportSummary{}, err
	}

	sortRowErrors(rowErrs)
	summary := importer.NewSummary(created, rowErrs, opts)
	s.log.WithField("created", created).WithField("errors", len(rowErrs)).WithField("dry_run", opts.DryRun).Info("employee import finished")
	return summary, nil
}

func (s *Service) ExportAssets(ctx context.Context, w io.Writer, f importer.Format) error {
	assets, _, err := s.store.ListAssets(ctx, models.AssetFilter{})
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	return importer.WriteAssets(w, f, assets)
}

func (s *Service) ExportEmployees(ctx context.Context, w io.Writer, f importer.Format) error {
	employees, _, err := s.store.ListEmployees(ctx, models.EmployeeFilter{})
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	return importer.WriteEmployees(w, f, employees)
}

// Today returns the service's calendar date, used to name export files
func (s *Service) Today() models.Date {
	return s.today()
}
