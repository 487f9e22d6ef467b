package store

import (
	"context"
	"fmt"
	"strings"

	"it-inventory-api/internal/models"
)

const employeeColumns = `id, employee_id, email, full_name, department, location, manager, is_active, created_at, updated_at`

func scanEmployee(row scanner, extra ...any) (models.Employee, error) {
	var e models.Employee
	dest := []any{
		&e.ID, &e.EmployeeID, &e.Email, &e.FullName, &e.Department,
		&e.Location, &e.Manager, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return e, err
}

func (r reader) getEmployee(ctx context.Context, id int64, lock bool) (models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	e, err := scanEmployee(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return models.Employee{}, notFound(err, "employee %d not found", id)
	}
	return e, nil
}

func (r reader) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return r.getEmployee(ctx, id, false)
}

func (r reader) ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, int, error) {
	clauses := []string{}
	args := []any{}
	if f.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		clauses = append(clauses, fmt.Sprintf(`(full_name ILIKE $%[1]d OR email ILIKE $%[1]d
			OR employee_id ILIKE $%[1]d OR department ILIKE $%[1]d)`, len(args)))
	}
	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := r.q.Query(ctx, `SELECT `+employeeColumns+`, COUNT(*) OVER() FROM employees`+whereClause+
		` ORDER BY full_name, id`+limitOffset(f.Limit, f.Offset), args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	employees := []models.Employee{}
	var total int
	for rows.Next() {
		e, err := scanEmployee(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(employees) == 0 && f.Offset > 0 {
		if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM employees`+whereClause, args...).Scan(&total); err != nil {
			return nil, 0, mapError(err)
		}
	}
	return employees, total, nil
}

func (t *txStore) LockEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return t.getEmployee(ctx, id, true)
}

func (t *txStore) InsertEmployee(ctx context.Context, e *models.Employee) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO employees (employee_id, email, full_name, department, location, manager, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		e.EmployeeID, e.Email, e.FullName, e.Department, e.Location, e.Manager, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapError(err)
}

func (t *txStore) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	err := t.q.QueryRow(ctx, `
		UPDATE employees SET employee_id = $1, email = $2, full_name = $3, department = $4,
			location = $5, manager = $6, is_active = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at`,
		e.EmployeeID, e.Email, e.FullName, e.Department, e.Location, e.Manager, e.IsActive, e.ID,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return notFound(err, "employee %d not found", e.ID)
	}
	return nil
}

func (t *txStore) EmployeeEmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE lower(email) = lower($1) AND id <> $2)`,
		email, excludeID).Scan(&exists)
	return exists, mapError(err)
}

func (t *txStore) EmployeeIDExists(ctx context.Context, employeeID string, excludeID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE employee_id = $1 AND id <> $2)`,
		employeeID, excludeID).Scan(&exists)
	return exists, mapError(err)
}
