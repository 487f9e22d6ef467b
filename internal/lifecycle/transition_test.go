package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/models"
)

func newAsset(status models.AssetStatus) models.Asset {
	return models.Asset{
		ID:        42,
		AssetTag:  "LAP-042",
		AssetType: models.AssetTypeLaptop,
		Name:      "ThinkPad X1",
		Status:    status,
	}
}

func activeEmployee() *models.Employee {
	return &models.Employee{ID: 9, FullName: "Sam Rivera", Email: "sam@example.com", IsActive: true}
}

func assignedAsset() models.Asset {
	a := newAsset(models.StatusActive)
	id := int64(9)
	d := models.NewDate(2024, 1, 10)
	a.AssignedTo = &id
	a.AssignedDate = &d
	return a
}

func TestTransitionAssign(t *testing.T) {
	a := newAsset(models.StatusAvailable)

	got, err := Transition(a, ActionAssign, Params{Employee: activeEmployee(), Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, int64(9), *got.AssignedTo)
	require.NotNil(t, got.AssignedDate)
	assert.Equal(t, models.DateOf(testNow), *got.AssignedDate)

	// input untouched
	assert.Equal(t, models.StatusAvailable, a.Status)
	assert.Nil(t, a.AssignedTo)
}

func TestTransitionReassignActive(t *testing.T) {
	a := assignedAsset()
	other := &models.Employee{ID: 11, FullName: "Kim Lee", IsActive: true}

	got, err := Transition(a, ActionAssign, Params{Employee: other, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, int64(11), *got.AssignedTo)
	assert.Equal(t, int64(9), *a.AssignedTo)
}

func TestTransitionAssignInactiveEmployee(t *testing.T) {
	a := newAsset(models.StatusAvailable)
	emp := activeEmployee()
	emp.IsActive = false

	got, err := Transition(a, ActionAssign, Params{Employee: emp, Now: testNow})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInactiveEmployee)
	assert.Nil(t, got.AssignedTo)
	assert.Equal(t, a, got)
}

func TestTransitionAssignMissingEmployee(t *testing.T) {
	_, err := Transition(newAsset(models.StatusAvailable), ActionAssign, Params{Now: testNow})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionAssignWhileInRepair(t *testing.T) {
	_, err := Transition(newAsset(models.StatusRepair), ActionAssign, Params{Employee: activeEmployee(), Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionUnassign(t *testing.T) {
	got, err := Transition(assignedAsset(), ActionUnassign, Params{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Nil(t, got.AssignedTo)
	assert.Nil(t, got.AssignedDate)

	_, err = Transition(newAsset(models.StatusAvailable), ActionUnassign, Params{Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionLogRepair(t *testing.T) {
	a := assignedAsset()
	a.Repairs = make([]models.Repair, 1, 4)
	a.Repairs[0] = models.Repair{ID: 1, AssetID: 42, Cost: 10, IssueDescription: "keyboard"}

	got, err := Transition(a, ActionLogRepair, Params{
		Repair: &models.Repair{IssueDescription: "battery swelling", Cost: 120, IsWarrantyRepair: true},
		Now:    testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRepair, got.Status)
	require.NotNil(t, got.PriorStatus)
	assert.Equal(t, models.StatusActive, *got.PriorStatus)
	require.Len(t, got.Repairs, 2)
	assert.Equal(t, 0.0, got.Repairs[1].Cost)
	assert.Equal(t, int64(42), got.Repairs[1].AssetID)
	assert.Len(t, a.Repairs, 1)
	assert.Equal(t, a.Repairs[:cap(a.Repairs)][1], models.Repair{}, "input backing array must not be written")
	assert.Equal(t, 9, int(*got.AssignedTo), "repair keeps the holder")
}

func TestTransitionLogRepairInvalid(t *testing.T) {
	a := newAsset(models.StatusAvailable)

	got, err := Transition(a, ActionLogRepair, Params{Repair: &models.Repair{IssueDescription: "x", Cost: -5}, Now: testNow})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, a, got)

	_, err = Transition(newAsset(models.StatusRepair), ActionLogRepair, Params{Repair: &models.Repair{IssueDescription: "again"}, Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionMarkFixed(t *testing.T) {
	active := models.StatusActive
	available := models.StatusAvailable

	tests := []struct {
		name     string
		prior    *models.AssetStatus
		assigned bool
		want     models.AssetStatus
	}{
		{"prior active", &active, true, models.StatusActive},
		{"prior available", &available, false, models.StatusAvailable},
		{"prior active but holder released", &active, false, models.StatusAvailable},
		{"no prior and assigned", nil, true, models.StatusActive},
		{"no prior and unassigned", nil, false, models.StatusAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAsset(models.StatusRepair)
			a.PriorStatus = tt.prior
			if tt.assigned {
				id := int64(9)
				a.AssignedTo = &id
			}
			got, err := Transition(a, ActionMarkFixed, Params{Now: testNow})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Nil(t, got.PriorStatus)
		})
	}
}

func TestTransitionMarkFixedNotInRepair(t *testing.T) {
	_, err := Transition(newAsset(models.StatusActive), ActionMarkFixed, Params{Now: testNow})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionDecommission(t *testing.T) {
	got, err := Transition(assignedAsset(), ActionDecommission, Params{Reason: "  screen cracked beyond repair  ", Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDecommissioned, got.Status)
	assert.Nil(t, got.AssignedTo)
	require.NotNil(t, got.DecommissionReason)
	assert.Equal(t, "screen cracked beyond repair", *got.DecommissionReason)
	assert.Equal(t, models.DateOf(testNow), *got.DecommissionDate)
}

func TestTransitionDecommissionShortReason(t *testing.T) {
	a := assignedAsset()
	got, err := Transition(a, ActionDecommission, Params{Reason: " broken   ", Now: testNow})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, a, got)
}

func TestTransitionFromDecommissionedIsTerminal(t *testing.T) {
	a := newAsset(models.StatusDecommissioned)
	reason := "end of life hardware"
	a.DecommissionReason = &reason

	for _, action := range []Action{ActionAssign, ActionUnassign, ActionLogRepair, ActionMarkFixed, ActionDecommission} {
		t.Run(string(action), func(t *testing.T) {
			got, err := Transition(a, action, Params{
				Employee: activeEmployee(),
				Repair:   &models.Repair{IssueDescription: "x"},
				Reason:   "another long enough reason",
				Now:      testNow,
			})
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, a, got)
		})
	}
}

func TestTransitionUnknownAction(t *testing.T) {
	_, err := Transition(newAsset(models.StatusAvailable), Action("teleport"), Params{Now: testNow})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRelease(t *testing.T) {
	got, changed := Release(assignedAsset())
	assert.True(t, changed)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Nil(t, got.AssignedTo)

	inRepair := assignedAsset()
	inRepair.Status = models.StatusRepair
	active := models.StatusActive
	inRepair.PriorStatus = &active
	got, changed = Release(inRepair)
	assert.True(t, changed)
	assert.Equal(t, models.StatusRepair, got.Status)
	assert.Equal(t, models.StatusAvailable, *got.PriorStatus)

	_, changed = Release(newAsset(models.StatusAvailable))
	assert.False(t, changed)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("assign: %w", InactiveEmployee("employee %d is inactive", 3))
	assert.True(t, errors.Is(err, ErrInactiveEmployee))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindInactiveEmployee, KindOf(err))
	assert.Equal(t, "employee 3 is inactive", MessageOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
