package inventory

import (
	"context"
	"fmt"
	"strings"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

func (s *Service) ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, int, error) {
	employees, total, err := s.store.ListEmployees(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	return employees, total, nil
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (EmployeeDetail, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return EmployeeDetail{}, err
	}
	assets, err := s.employeeAssets(ctx, id)
	if err != nil {
		return EmployeeDetail{}, err
	}
	return EmployeeDetail{Employee: e, Assets: assets}, nil
}

// EmployeeAssets lists the assets currently held by an employee
func (s *Service) EmployeeAssets(ctx context.Context, id int64) ([]AssetView, error) {
	if _, err := s.store.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	return s.employeeAssets(ctx, id)
}

func (s *Service) employeeAssets(ctx context.Context, id int64) ([]AssetView, error) {
	assets, _, err := s.store.ListAssets(ctx, models.AssetFilter{EmployeeID: &id})
	if err != nil {
		return nil, fmt.Errorf("list employee assets: %w", err)
	}
	return s.listViews(assets), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", lifecycle.Validation("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", lifecycle.Validation("invalid email %q", email)
	}
	return email, nil
}

func (s *Service) CreateEmployee(ctx context.Context, actor Actor, req models.CreateEmployeeRequest) (models.Employee, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.Employee{}, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return models.Employee{}, lifecycle.Validation("full name is required")
	}

	e := models.Employee{
		EmployeeID: trimmed(req.EmployeeID),
		Email:      email,
		FullName:   fullName,
		Department: trimmed(req.Department),
		Location:   trimmed(req.Location),
		Manager:    trimmed(req.Manager),
		IsActive:   true,
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := checkEmployeeUnique(ctx, tx, e, 0); err != nil {
			return err
		}
		if err := tx.InsertEmployee(ctx, &e); err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
		return s.audit(ctx, tx, actor, models.AuditCreate, models.EntityEmployee, e.ID, nil, models.JSONB{
			"email":     e.Email,
			"full_name": e.FullName,
		})
	})
	if err != nil {
		return models.Employee{}, err
	}
	return e, nil
}

func checkEmployeeUnique(ctx context.Context, tx Tx, e models.Employee, excludeID int64) error {
	taken, err := tx.EmployeeEmailExists(ctx, e.Email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return lifecycle.Conflict("Employee with email '%s' already exists", e.Email)
	}
	if e.EmployeeID != nil {
		taken, err := tx.EmployeeIDExists(ctx, *e.EmployeeID, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return lifecycle.Conflict("Employee ID %s already exists", *e.EmployeeID)
		}
	}
	return nil
}

// UpdateEmployee edits an employee. Setting is_active to false goes through
// the same path as DeactivateEmployee and releases the employee's assets.
func (s *Service) UpdateEmployee(ctx context.Context, actor Actor, id int64, req models.UpdateEmployeeRequest) (models.Employee, error) {
	var updated models.Employee
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := tx.LockEmployee(ctx, id)
		if err != nil {
			return err
		}

		changes := changeSet{}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			if email != e.Email {
				changes.add("email", e.Email, email)
				e.Email = email
			}
		}
		if req.FullName != nil {
			name := strings.TrimSpace(*req.FullName)
			if name == "" {
				return lifecycle.Validation("full name cannot be empty")
			}
			if name != e.FullName {
				changes.add("full_name", e.FullName, name)
				e.FullName = name
			}
		}
		changes.setString("employee_id", &e.EmployeeID, req.EmployeeID)
		changes.setString("department", &e.Department, req.Department)
		changes.setString("location", &e.Location, req.Location)
		changes.setString("manager", &e.Manager, req.Manager)

		deactivate := req.IsActive != nil && !*req.IsActive && e.IsActive
		if req.IsActive != nil && *req.IsActive && !e.IsActive {
			changes.add("is_active", false, true)
			e.IsActive = true
		}

		if len(changes) > 0 {
			if err := checkEmployeeUnique(ctx, tx, e, e.ID); err != nil {
				return err
			}
			if err := tx.UpdateEmployee(ctx, &e); err != nil {
				return fmt.Errorf("update employee: %w", err)
			}
			if err := s.audit(ctx, tx, actor, models.AuditUpdate, models.EntityEmployee, e.ID, nil, models.JSONB(changes)); err != nil {
				return err
			}
		}
		if deactivate {
			if _, err := s.deactivate(ctx, tx, actor, &e); err != nil {
				return err
			}
		}
		updated = e
		return nil
	})
	if err != nil {
		return models.Employee{}, err
	}
	return updated, nil
}

// DeactivateEmployee marks the employee inactive and releases every asset
// they hold, in one transaction. History is kept. It returns the number of
// released assets; deactivating an inactive employee releases nothing.
func (s *Service) DeactivateEmployee(ctx context.Context, actor Actor, id int64) (int, error) {
	var released int
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := tx.LockEmployee(ctx, id)
		if err != nil {
			return err
		}
		released, err = s.deactivate(ctx, tx, actor, &e)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.WithField("employee_id", id).WithField("released_assets", released).Info("employee deactivated")
	return released, nil
}

// deactivate expects e to be locked already.
func (s *Service) deactivate(ctx context.Context, tx Tx, actor Actor, e *models.Employee) (int, error) {
	assets, err := tx.LockAssetsByEmployee(ctx, e.ID)
	if err != nil {
		return 0, fmt.Errorf("lock employee assets: %w", err)
	}

	released := make([]string, 0, len(assets))
	for _, a := range assets {
		next, ok := lifecycle.Release(a)
		if !ok {
			continue
		}
		if err := tx.UpdateAsset(ctx, &next); err != nil {
			return 0, fmt.Errorf("release asset %s: %w", a.AssetTag, err)
		}
		if err := s.audit(ctx, tx, actor, models.AuditUnassign, models.EntityAsset, a.ID, &a.ID, models.JSONB{
			"old_employee_id": e.ID,
			"reason":          "employee deactivated",
		}); err != nil {
			return 0, err
		}
		released = append(released, a.AssetTag)
	}

	if e.IsActive {
		e.IsActive = false
		if err := tx.UpdateEmployee(ctx, e); err != nil {
			return 0, fmt.Errorf("update employee: %w", err)
		}
	}
	err = s.audit(ctx, tx, actor, models.AuditDeactivate, models.EntityEmployee, e.ID, nil, models.JSONB{
		"released_assets": released,
	})
	if err != nil {
		return 0, err
	}
	return len(released), nil
}
