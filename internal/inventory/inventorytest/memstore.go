// Package inventorytest provides an in-memory inventory.Store for tests.
// Transactions run one at a time against a copy of the state that replaces
// the committed state only when the transaction function succeeds.
package inventorytest

import (
	"cmp"
	"context"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

type state struct {
	nextID        int64
	assets        map[int64]models.Asset
	employees     map[int64]models.Employee
	users         map[int64]models.User
	repairs       []models.Repair
	audit         []models.AuditEntry
	sweepRuns     map[string]models.SweepRun
	notifications []models.WarrantyNotification
}

func (s *state) clone() *state {
	return &state{
		nextID:        s.nextID,
		assets:        maps.Clone(s.assets),
		employees:     maps.Clone(s.employees),
		users:         maps.Clone(s.users),
		repairs:       slices.Clone(s.repairs),
		audit:         slices.Clone(s.audit),
		sweepRuns:     maps.Clone(s.sweepRuns),
		notifications: slices.Clone(s.notifications),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is a concurrency-safe in-memory store
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error

	// Now stamps created_at and updated_at
	Now func() time.Time
}

var _ inventory.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			assets:    make(map[int64]models.Asset),
			employees: make(map[int64]models.Employee),
			users:     make(map[int64]models.User),
			sweepRuns: make(map[string]models.SweepRun),
		},
		failures: make(map[string]error),
		Now:      time.Now,
	}
}

// FailOn makes every call of the named Tx method return err until cleared
// with a nil error.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{view: view{st: work}, store: s}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read() view {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{st: s.st.clone()}
}

// Seeding helpers write directly to the committed state.

func (s *Store) AddEmployee(e models.Employee) models.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.st.id()
	e.CreatedAt, e.UpdatedAt = s.Now(), s.Now()
	s.st.employees[e.ID] = e
	return e
}

// AddAsset stores a without its repairs; add those with AddRepair.
func (s *Store) AddAsset(a models.Asset) models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.st.id()
	if a.Status == "" {
		a.Status = models.StatusAvailable
	}
	a.CreatedAt, a.UpdatedAt = s.Now(), s.Now()
	a.Repairs, a.AssignedToName = nil, nil
	s.st.assets[a.ID] = a
	return view{st: s.st}.hydrate(a)
}

func (s *Store) AddRepair(r models.Repair) models.Repair {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.st.id()
	r.CreatedAt = s.Now()
	s.st.repairs = append(s.st.repairs, r)
	return r
}

func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.st.id()
	u.CreatedAt, u.UpdatedAt = s.Now(), s.Now()
	s.st.users[u.ID] = u
	return u
}

func (s *Store) Audit() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.audit)
}

func (s *Store) Notifications() []models.WarrantyNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.notifications)
}

func (s *Store) SweepRuns() []models.SweepRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := slices.Collect(maps.Values(s.st.sweepRuns))
	slices.SortFunc(runs, func(a, b models.SweepRun) int { return a.RunDate.Compare(b.RunDate.Time) })
	return runs
}

// Reader methods outside a transaction read a snapshot of committed state.

func (s *Store) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	return s.read().GetAsset(ctx, id)
}

func (s *Store) ListAssets(ctx context.Context, f models.AssetFilter) ([]models.Asset, int, error) {
	return s.read().ListAssets(ctx, f)
}

func (s *Store) ListSweepCandidates(ctx context.Context) ([]models.Asset, error) {
	return s.read().ListSweepCandidates(ctx)
}

func (s *Store) ListRepairs(ctx context.Context, assetID int64) ([]models.Repair, error) {
	return s.read().ListRepairs(ctx, assetID)
}

func (s *Store) ListAllRepairs(ctx context.Context) ([]models.Repair, error) {
	return s.read().ListAllRepairs(ctx)
}

func (s *Store) RecentRepairs(ctx context.Context, limit int) ([]models.RecentRepair, error) {
	return s.read().RecentRepairs(ctx, limit)
}

func (s *Store) ListAudit(ctx context.Context, assetID int64) ([]models.AuditEntry, error) {
	return s.read().ListAudit(ctx, assetID)
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return s.read().GetEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, int, error) {
	return s.read().ListEmployees(ctx, f)
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.read().GetUser(ctx, id)
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return s.read().GetUserByLogin(ctx, login)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.read().ListUsers(ctx)
}

func (s *Store) NotificationRecipients(ctx context.Context) ([]string, error) {
	return s.read().NotificationRecipients(ctx)
}

func (s *Store) LastSweepRun(ctx context.Context) (*models.SweepRun, error) {
	return s.read().LastSweepRun(ctx)
}

// view implements inventory.Reader over one state
type view struct {
	st *state
}

func (v view) hydrate(a models.Asset) models.Asset {
	a.Repairs = v.repairsOf(a.ID)
	a.AssignedToName = nil
	if a.AssignedTo != nil {
		if e, ok := v.st.employees[*a.AssignedTo]; ok {
			name := e.FullName
			a.AssignedToName = &name
		}
	}
	return a
}

func (v view) repairsOf(assetID int64) []models.Repair {
	var out []models.Repair
	for _, r := range v.st.repairs {
		if r.AssetID == assetID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Repair) int {
		return cmp.Or(a.RepairDate.Compare(b.RepairDate.Time), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (v view) GetAsset(_ context.Context, id int64) (models.Asset, error) {
	a, ok := v.st.assets[id]
	if !ok {
		return models.Asset{}, lifecycle.NotFound("asset %d not found", id)
	}
	return v.hydrate(a), nil
}

func containsFold(s *string, q string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), q)
}

func (v view) ListAssets(_ context.Context, f models.AssetFilter) ([]models.Asset, int, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []models.Asset
	for _, a := range v.st.assets {
		switch {
		case f.Type != nil && a.AssetType != *f.Type,
			f.Status != nil && a.Status != *f.Status,
			f.Assigned != nil && a.Assigned() != *f.Assigned,
			f.EmployeeID != nil && (a.AssignedTo == nil || *a.AssignedTo != *f.EmployeeID):
			continue
		}
		if q != "" && !containsFold(&a.AssetTag, q) && !containsFold(&a.Name, q) &&
			!containsFold(a.SerialNumber, q) && !containsFold(a.Manufacturer, q) && !containsFold(a.Model, q) {
			continue
		}
		out = append(out, v.hydrate(a))
	}
	sortAssets(out, f.Sort)
	total := len(out)
	return page(out, f.Limit, f.Offset), total, nil
}

func sortAssets(assets []models.Asset, sortParam string) {
	key := strings.TrimPrefix(sortParam, "-")
	desc := strings.HasPrefix(sortParam, "-")
	slices.SortFunc(assets, func(a, b models.Asset) int {
		var c int
		switch key {
		case "asset_tag":
			c = strings.Compare(a.AssetTag, b.AssetTag)
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "warranty_end":
			c = cmp.Compare(dateKey(a.WarrantyEnd), dateKey(b.WarrantyEnd))
		}
		c = cmp.Or(c, cmp.Compare(a.ID, b.ID))
		if desc {
			return -c
		}
		return c
	})
}

func dateKey(d *models.Date) string {
	if d == nil {
		return "9999-12-31"
	}
	return d.String()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (v view) ListSweepCandidates(ctx context.Context) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range v.st.assets {
		if a.Status != models.StatusDecommissioned && a.WarrantyEnd != nil {
			out = append(out, v.hydrate(a))
		}
	}
	sortAssets(out, "")
	return out, nil
}

func (v view) ListRepairs(_ context.Context, assetID int64) ([]models.Repair, error) {
	return v.repairsOf(assetID), nil
}

func (v view) ListAllRepairs(context.Context) ([]models.Repair, error) {
	return slices.Clone(v.st.repairs), nil
}

func (v view) RecentRepairs(_ context.Context, limit int) ([]models.RecentRepair, error) {
	repairs := slices.Clone(v.st.repairs)
	slices.SortFunc(repairs, func(a, b models.Repair) int {
		return cmp.Or(b.RepairDate.Compare(a.RepairDate.Time), cmp.Compare(b.ID, a.ID))
	})
	out := make([]models.RecentRepair, 0, len(repairs))
	for _, r := range page(repairs, limit, 0) {
		a := v.st.assets[r.AssetID]
		out = append(out, models.RecentRepair{Repair: r, AssetTag: a.AssetTag, AssetName: a.Name, AssetType: a.AssetType})
	}
	return out, nil
}

func (v view) ListAudit(_ context.Context, assetID int64) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range v.st.audit {
		if e.AssetID != nil && *e.AssetID == assetID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b models.AuditEntry) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (v view) GetEmployee(_ context.Context, id int64) (models.Employee, error) {
	e, ok := v.st.employees[id]
	if !ok {
		return models.Employee{}, lifecycle.NotFound("employee %d not found", id)
	}
	return e, nil
}

func (v view) ListEmployees(_ context.Context, f models.EmployeeFilter) ([]models.Employee, int, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []models.Employee
	for _, e := range v.st.employees {
		if f.ActiveOnly && !e.IsActive {
			continue
		}
		if q != "" && !containsFold(&e.FullName, q) && !containsFold(&e.Email, q) &&
			!containsFold(e.EmployeeID, q) && !containsFold(e.Department, q) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.Employee) int {
		return cmp.Or(strings.Compare(a.FullName, b.FullName), cmp.Compare(a.ID, b.ID))
	})
	total := len(out)
	return page(out, f.Limit, f.Offset), total, nil
}

func (v view) GetUser(_ context.Context, id int64) (models.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return models.User{}, lifecycle.NotFound("user %d not found", id)
	}
	return u, nil
}

func (v view) GetUserByLogin(_ context.Context, login string) (models.User, error) {
	for _, u := range v.st.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return models.User{}, lifecycle.NotFound("user %q not found", login)
}

func (v view) ListUsers(context.Context) ([]models.User, error) {
	users := slices.Collect(maps.Values(v.st.users))
	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (v view) NotificationRecipients(ctx context.Context) ([]string, error) {
	users, _ := v.ListUsers(ctx)
	var out []string
	for _, u := range users {
		if u.CanNotify() {
			out = append(out, u.Email)
		}
	}
	return out, nil
}

func (v view) LastSweepRun(context.Context) (*models.SweepRun, error) {
	var last *models.SweepRun
	for _, r := range v.st.sweepRuns {
		if last == nil || r.RunDate.After(last.RunDate.Time) {
			run := r
			last = &run
		}
	}
	return last, nil
}

// tx implements inventory.Tx over a working copy
type tx struct {
	view
	store *Store
}

func (t *tx) fail(method string) error {
	return t.store.failures[method]
}

func (t *tx) now() time.Time {
	return t.store.Now()
}

func (t *tx) LockAsset(ctx context.Context, id int64) (models.Asset, error) {
	if err := t.fail("LockAsset"); err != nil {
		return models.Asset{}, err
	}
	return t.GetAsset(ctx, id)
}

func (t *tx) LockAssetsByEmployee(ctx context.Context, employeeID int64) ([]models.Asset, error) {
	assets, _, err := t.ListAssets(ctx, models.AssetFilter{EmployeeID: &employeeID})
	return assets, err
}

func (t *tx) LockEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return t.GetEmployee(ctx, id)
}

func (t *tx) checkAssetUnique(a *models.Asset) error {
	for _, other := range t.st.assets {
		if other.ID == a.ID {
			continue
		}
		if other.AssetTag == a.AssetTag {
			return lifecycle.Conflict("asset tag %s already exists", a.AssetTag)
		}
		if a.SerialNumber != nil && other.SerialNumber != nil && *other.SerialNumber == *a.SerialNumber {
			return lifecycle.Conflict("serial number %s already exists", *a.SerialNumber)
		}
	}
	return nil
}

func (t *tx) InsertAsset(_ context.Context, a *models.Asset) error {
	if err := t.fail("InsertAsset"); err != nil {
		return err
	}
	if err := t.checkAssetUnique(a); err != nil {
		return err
	}
	a.ID = t.st.id()
	a.CreatedAt, a.UpdatedAt = t.now(), t.now()
	stored := *a
	stored.Repairs, stored.AssignedToName = nil, nil
	t.st.assets[a.ID] = stored
	return nil
}

func (t *tx) UpdateAsset(_ context.Context, a *models.Asset) error {
	if err := t.fail("UpdateAsset"); err != nil {
		return err
	}
	if _, ok := t.st.assets[a.ID]; !ok {
		return lifecycle.NotFound("asset %d not found", a.ID)
	}
	if err := t.checkAssetUnique(a); err != nil {
		return err
	}
	a.UpdatedAt = t.now()
	stored := *a
	stored.Repairs, stored.AssignedToName = nil, nil
	t.st.assets[a.ID] = stored
	return nil
}

func (t *tx) DeleteAsset(_ context.Context, id int64) error {
	if _, ok := t.st.assets[id]; !ok {
		return lifecycle.NotFound("asset %d not found", id)
	}
	delete(t.st.assets, id)
	t.st.repairs = slices.DeleteFunc(t.st.repairs, func(r models.Repair) bool { return r.AssetID == id })
	for i, e := range t.st.audit {
		if e.AssetID != nil && *e.AssetID == id {
			t.st.audit[i].AssetID = nil
		}
	}
	return nil
}

var tagSuffix = regexp.MustCompile(`^[A-Z]+-(\d+)$`)

func (t *tx) NextAssetTag(_ context.Context, at models.AssetType) (string, error) {
	prefix := at.TagPrefix()
	highest := 0
	for _, a := range t.st.assets {
		if !strings.HasPrefix(a.AssetTag, prefix+"-") {
			continue
		}
		if m := tagSuffix.FindStringSubmatch(a.AssetTag); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	return models.FormatAssetTag(prefix, highest+1), nil
}

func (t *tx) AssetTagExists(_ context.Context, tag string) (bool, error) {
	for _, a := range t.st.assets {
		if a.AssetTag == tag {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) SerialOwner(_ context.Context, serial string, excludeID int64) (string, error) {
	for _, a := range t.st.assets {
		if a.ID != excludeID && a.SerialNumber != nil && *a.SerialNumber == serial {
			return a.AssetTag, nil
		}
	}
	return "", nil
}

func (t *tx) InsertRepair(_ context.Context, r *models.Repair) error {
	if err := t.fail("InsertRepair"); err != nil {
		return err
	}
	r.ID = t.st.id()
	r.CreatedAt = t.now()
	t.st.repairs = append(t.st.repairs, *r)
	return nil
}

func (t *tx) InsertAudit(_ context.Context, e *models.AuditEntry) error {
	if err := t.fail("InsertAudit"); err != nil {
		return err
	}
	e.ID = t.st.id()
	e.CreatedAt = t.now()
	t.st.audit = append(t.st.audit, *e)
	return nil
}

func (t *tx) InsertEmployee(ctx context.Context, e *models.Employee) error {
	if err := t.fail("InsertEmployee"); err != nil {
		return err
	}
	if taken, _ := t.EmployeeEmailExists(ctx, e.Email, 0); taken {
		return lifecycle.Conflict("employee email %s already exists", e.Email)
	}
	e.ID = t.st.id()
	e.CreatedAt, e.UpdatedAt = t.now(), t.now()
	t.st.employees[e.ID] = *e
	return nil
}

func (t *tx) UpdateEmployee(_ context.Context, e *models.Employee) error {
	if err := t.fail("UpdateEmployee"); err != nil {
		return err
	}
	if _, ok := t.st.employees[e.ID]; !ok {
		return lifecycle.NotFound("employee %d not found", e.ID)
	}
	e.UpdatedAt = t.now()
	t.st.employees[e.ID] = *e
	return nil
}

func (t *tx) EmployeeEmailExists(_ context.Context, email string, excludeID int64) (bool, error) {
	for _, e := range t.st.employees {
		if e.ID != excludeID && strings.EqualFold(e.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) EmployeeIDExists(_ context.Context, employeeID string, excludeID int64) (bool, error) {
	for _, e := range t.st.employees {
		if e.ID != excludeID && e.EmployeeID != nil && *e.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CountUsersLocked(context.Context) (int, error) {
	return len(t.st.users), nil
}

func (t *tx) InsertUser(ctx context.Context, u *models.User) error {
	if err := t.fail("InsertUser"); err != nil {
		return err
	}
	for _, login := range []string{u.Username, u.Email} {
		if _, err := t.GetUserByLogin(ctx, login); err == nil {
			return lifecycle.Conflict("user %s already exists", login)
		}
	}
	u.ID = t.st.id()
	u.CreatedAt, u.UpdatedAt = t.now(), t.now()
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) UpdateUser(_ context.Context, u *models.User) error {
	if _, ok := t.st.users[u.ID]; !ok {
		return lifecycle.NotFound("user %d not found", u.ID)
	}
	u.UpdatedAt = t.now()
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) TouchLogin(_ context.Context, id int64, at time.Time) error {
	if err := t.fail("TouchLogin"); err != nil {
		return err
	}
	u, ok := t.st.users[id]
	if !ok {
		return lifecycle.NotFound("user %d not found", id)
	}
	u.LastLoginAt = &at
	t.st.users[id] = u
	return nil
}

func (t *tx) ClaimSweepRun(_ context.Context, run *models.SweepRun, force bool) (bool, error) {
	if err := t.fail("ClaimSweepRun"); err != nil {
		return false, err
	}
	key := run.RunDate.String()
	if _, exists := t.st.sweepRuns[key]; exists && !force {
		return false, nil
	}
	t.st.sweepRuns[key] = *run
	return true, nil
}

func (t *tx) InsertNotification(_ context.Context, n *models.WarrantyNotification) error {
	if err := t.fail("InsertNotification"); err != nil {
		return err
	}
	n.ID = t.st.id()
	t.st.notifications = append(t.st.notifications, *n)
	return nil
}
