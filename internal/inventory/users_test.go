package inventory_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

func register(t *testing.T, f *fixture, username string) models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "correct horse",
		FullName: username,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	f := newFixture(t)

	first := register(t, f, "alice")
	second := register(t, f, "bob")

	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, models.RoleViewer, second.Role)
	assert.Empty(t, first.PasswordHash)

	_, err := f.svc.Register(context.Background(), models.RegisterRequest{Email: "ALICE@example.com", Username: "alice2", Password: "correct horse"})
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
	_, err = f.svc.Register(context.Background(), models.RegisterRequest{Email: "c@example.com", Username: "carol", Password: "short"})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestConcurrentFirstRegistrationsYieldOneAdmin(t *testing.T) {
	f := newFixture(t)

	names := []string{"u1", "u2", "u3", "u4", "u5"}
	roles := make([]models.Role, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.svc.Register(context.Background(), models.RegisterRequest{
				Email: name + "@example.com", Username: name, Password: "correct horse",
			})
			if err == nil {
				roles[i] = u.Role
			}
		}()
	}
	wg.Wait()

	admins := 0
	for _, r := range roles {
		if r == models.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "alice")

	got, err := f.svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)
	assert.Empty(t, got.PasswordHash)

	_, err = f.svc.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, inventory.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, inventory.ErrInvalidCredentials)

	bob := register(t, f, "bob")
	inactive := false
	_, err = f.svc.UpdateUser(ctx, inventory.Actor{UserID: u.ID}, bob.ID, models.UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "bob", "correct horse")
	assert.ErrorIs(t, err, inventory.ErrInactiveUser)

	current, err := f.svc.CurrentUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, current.IsActive)
	assert.Empty(t, current.PasswordHash)
	_, err = f.svc.CurrentUser(ctx, 999)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := register(t, f, "alice")
	bob := register(t, f, "bob")
	self := inventory.Actor{UserID: admin.ID}

	technician := models.RoleTechnician
	got, err := f.svc.UpdateUser(ctx, self, bob.ID, models.UpdateUserRequest{Role: &technician})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTechnician, got.Role)

	recipients, err := f.store.NotificationRecipients(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, recipients)

	viewer := models.RoleViewer
	_, err = f.svc.UpdateUser(ctx, self, admin.ID, models.UpdateUserRequest{Role: &viewer})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	bogus := models.Role("root")
	_, err = f.svc.UpdateUser(ctx, self, bob.ID, models.UpdateUserRequest{Role: &bogus})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "alice")
	me := inventory.Actor{UserID: u.ID}

	err := f.svc.ChangePassword(ctx, me, "wrong", "new password")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, me, "correct horse", "new password"))
	_, err = f.svc.Login(ctx, "alice", "new password")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "correct horse")
	assert.ErrorIs(t, err, inventory.ErrInvalidCredentials)
}

func TestPasswordLongerThanBcryptLimitIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := strings.Repeat("p", inventory.MaxPasswordLen+8)

	_, err := f.svc.Register(ctx, models.RegisterRequest{Email: "long@example.com", Username: "longpass", Password: long})
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	u := register(t, f, "alice")
	err = f.svc.ChangePassword(ctx, inventory.Actor{UserID: u.ID}, "correct horse", long)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	exact := strings.Repeat("p", inventory.MaxPasswordLen)
	require.NoError(t, f.svc.ChangePassword(ctx, inventory.Actor{UserID: u.ID}, "correct horse", exact))
	_, err = f.svc.Login(ctx, "alice", exact)
	assert.NoError(t, err)
}
