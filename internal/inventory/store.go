package inventory

import (
	"context"
	"time"

	"it-inventory-api/internal/models"
)

// Reader is the read side of the store. Asset reads include the asset's
// repairs ordered by repair date and the assigned employee's name.
// A Limit of zero or less in a filter means no limit.
type Reader interface {
	GetAsset(ctx context.Context, id int64) (models.Asset, error)
	ListAssets(ctx context.Context, f models.AssetFilter) ([]models.Asset, int, error)
	// ListSweepCandidates returns non-decommissioned assets with a warranty end date.
	ListSweepCandidates(ctx context.Context) ([]models.Asset, error)
	ListRepairs(ctx context.Context, assetID int64) ([]models.Repair, error)
	ListAllRepairs(ctx context.Context) ([]models.Repair, error)
	RecentRepairs(ctx context.Context, limit int) ([]models.RecentRepair, error)
	ListAudit(ctx context.Context, assetID int64) ([]models.AuditEntry, error)

	GetEmployee(ctx context.Context, id int64) (models.Employee, error)
	ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, int, error)

	GetUser(ctx context.Context, id int64) (models.User, error)
	// GetUserByLogin matches the username or the email, case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// NotificationRecipients returns the emails of active admins and technicians.
	NotificationRecipients(ctx context.Context) ([]string, error)

	// LastSweepRun returns nil when no sweep has ever run.
	LastSweepRun(ctx context.Context) (*models.SweepRun, error)
}

// Tx is a unit of work. Lock methods hold row locks until the transaction ends.
type Tx interface {
	Reader

	LockAsset(ctx context.Context, id int64) (models.Asset, error)
	LockAssetsByEmployee(ctx context.Context, employeeID int64) ([]models.Asset, error)
	LockEmployee(ctx context.Context, id int64) (models.Employee, error)

	InsertAsset(ctx context.Context, a *models.Asset) error
	UpdateAsset(ctx context.Context, a *models.Asset) error
	DeleteAsset(ctx context.Context, id int64) error
	// NextAssetTag returns the next free tag for the type's prefix, e.g. LAP-004.
	NextAssetTag(ctx context.Context, t models.AssetType) (string, error)
	AssetTagExists(ctx context.Context, tag string) (bool, error)
	// SerialOwner returns the tag of the asset holding serial, ignoring
	// excludeID, or "" when the serial is free.
	SerialOwner(ctx context.Context, serial string, excludeID int64) (string, error)

	InsertRepair(ctx context.Context, r *models.Repair) error
	InsertAudit(ctx context.Context, e *models.AuditEntry) error

	InsertEmployee(ctx context.Context, e *models.Employee) error
	UpdateEmployee(ctx context.Context, e *models.Employee) error
	EmployeeEmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	EmployeeIDExists(ctx context.Context, employeeID string, excludeID int64) (bool, error)

	// CountUsersLocked counts users while blocking concurrent registrations.
	CountUsersLocked(ctx context.Context) (int, error)
	InsertUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error

	// ClaimSweepRun records the day's run marker. It reports false when the
	// day was already claimed, unless force replaces the existing marker.
	ClaimSweepRun(ctx context.Context, run *models.SweepRun, force bool) (bool, error)
	InsertNotification(ctx context.Context, n *models.WarrantyNotification) error
}

// Store gives access to reads and to transactions. InTx commits when fn
// returns nil and rolls back otherwise.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
