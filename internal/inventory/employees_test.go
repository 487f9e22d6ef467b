package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

func TestCreateEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateEmployee(ctx, tech, models.CreateEmployeeRequest{
		Email:      "  Grace.Hopper@Example.COM ",
		FullName:   "Grace Hopper",
		EmployeeID: strPtr("E-100"),
		Department: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "grace.hopper@example.com", e.Email)
	assert.True(t, e.IsActive)
	assert.Nil(t, e.Department)

	_, err = f.svc.CreateEmployee(ctx, tech, models.CreateEmployeeRequest{Email: "grace.hopper@example.com", FullName: "Other"})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	_, err = f.svc.CreateEmployee(ctx, tech, models.CreateEmployeeRequest{Email: "new@example.com", FullName: "Other", EmployeeID: strPtr("E-100")})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	_, err = f.svc.CreateEmployee(ctx, tech, models.CreateEmployeeRequest{Email: "not-an-email", FullName: "Other"})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	_, err = f.svc.CreateEmployee(ctx, tech, models.CreateEmployeeRequest{Email: "x@example.com"})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestDeactivateEmployeeReleasesAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.employee(t, "ada", true)
	other := f.employee(t, "bob", true)

	laptop := f.asset(t, models.Asset{AssetTag: "LAP-001"})
	monitor := f.asset(t, models.Asset{AssetTag: "MON-001", AssetType: models.AssetTypeMonitor, Name: "Dell"})
	keep := f.asset(t, models.Asset{AssetTag: "KEY-001", AssetType: models.AssetTypeKeyboard, Name: "MX Keys"})
	for _, a := range []models.Asset{laptop, monitor} {
		_, err := f.svc.Assign(ctx, tech, a.ID, &e.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Assign(ctx, tech, keep.ID, &other.ID)
	require.NoError(t, err)
	_, err = f.svc.LogRepair(ctx, tech, monitor.ID, models.CreateRepairRequest{IssueDescription: "Flicker"})
	require.NoError(t, err)

	released, err := f.svc.DeactivateEmployee(ctx, tech, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	detail, err := f.svc.GetEmployee(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsActive)
	assert.Empty(t, detail.Assets)

	gotLaptop, err := f.store.GetAsset(ctx, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, gotLaptop.Status)
	assert.Nil(t, gotLaptop.AssignedTo)

	gotMonitor, err := f.store.GetAsset(ctx, monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRepair, gotMonitor.Status)
	assert.Nil(t, gotMonitor.AssignedTo)

	fixed, err := f.svc.MarkFixed(ctx, tech, monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, fixed.Status)

	gotKeep, err := f.store.GetAsset(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, *gotKeep.AssignedTo)

	_, err = f.svc.Assign(ctx, tech, laptop.ID, &e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInactiveEmployee)

	// deactivating again releases nothing
	released, err = f.svc.DeactivateEmployee(ctx, tech, e.ID)
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestUpdateEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.employee(t, "ada", true)
	f.employee(t, "bob", true)
	a := f.asset(t, models.Asset{AssetTag: "LAP-001"})
	_, err := f.svc.Assign(ctx, tech, a.ID, &e.ID)
	require.NoError(t, err)

	got, err := f.svc.UpdateEmployee(ctx, tech, e.ID, models.UpdateEmployeeRequest{Department: strPtr("Engineering")})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", *got.Department)

	_, err = f.svc.UpdateEmployee(ctx, tech, e.ID, models.UpdateEmployeeRequest{Email: strPtr("BOB@example.com")})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)

	inactive := false
	got, err = f.svc.UpdateEmployee(ctx, tech, e.ID, models.UpdateEmployeeRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	stored, err := f.store.GetAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedTo)
	assert.Equal(t, models.StatusAvailable, stored.Status)

	active := true
	got, err = f.svc.UpdateEmployee(ctx, tech, e.ID, models.UpdateEmployeeRequest{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestEmployeeAssetsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.EmployeeAssets(context.Background(), 404)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}
