package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

// Password length bounds. bcrypt rejects inputs over 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", lifecycle.Validation("password must be at least %d characters", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return "", lifecycle.Validation("password must be at most %d bytes", MaxPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates an IT staff account. The first account ever created
// becomes an admin; the user count is taken under a table lock inside the
// same transaction, so two concurrent first registrations cannot both win.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.User{}, err
	}
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 {
		return models.User{}, lifecycle.Validation("username must be at least 3 characters")
	}
	if strings.Contains(username, "@") {
		return models.User{}, lifecycle.Validation("username cannot contain '@'")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		IsActive:     true,
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		count, err := tx.CountUsersLocked(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		u.Role = models.RoleViewer
		if count == 0 {
			u.Role = models.RoleAdmin
		}

		for _, login := range []string{username, email} {
			_, err := tx.GetUserByLogin(ctx, login)
			switch {
			case err == nil:
				return lifecycle.Conflict("username or email already registered")
			case !errors.Is(err, lifecycle.ErrNotFound):
				return err
			}
		}

		if err := tx.InsertUser(ctx, &u); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return s.audit(ctx, tx, Actor{UserID: u.ID}, models.AuditCreate, models.EntityUser, u.ID, nil, models.JSONB{
			"username": u.Username,
			"role":     string(u.Role),
		})
	})
	if err != nil {
		return models.User{}, err
	}

	s.log.WithField("user_id", u.ID).WithField("role", u.Role).Info("user registered")
	return u.Redacted(), nil
}

// Login checks credentials given as username or email. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.User{}, lifecycle.Validation("username and password are required")
	}

	u, err := s.store.GetUserByLogin(ctx, login)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return models.User{}, ErrInactiveUser
	}

	now := s.now()
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.TouchLogin(ctx, u.ID, now)
	})
	if err != nil {
		// Log error but don't fail login
		s.log.WithError(err).WithField("user_id", u.ID).Warn("failed to update last login")
	} else {
		u.LastLoginAt = &now
	}
	return u.Redacted(), nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return u.Redacted(), nil
}

// CurrentUser loads a token's user with its stored role and active flag.
// Capability checks run on this role, not on the one signed into the token.
func (s *Service) CurrentUser(ctx context.Context, id int64) (models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Redacted()
	}
	return users, nil
}

// UpdateUser changes a user's role, name or active flag. Admins cannot
// demote or deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, actor Actor, id int64, req models.UpdateUserRequest) (models.User, error) {
	if req.Role != nil && !models.IsValidRole(*req.Role) {
		return models.User{}, lifecycle.Validation("invalid role %q", *req.Role)
	}
	if actor.UserID == id {
		if req.Role != nil && *req.Role != models.RoleAdmin {
			return models.User{}, lifecycle.Validation("you cannot change your own role")
		}
		if req.IsActive != nil && !*req.IsActive {
			return models.User{}, lifecycle.Validation("you cannot deactivate your own account")
		}
	}

	var updated models.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		changes := changeSet{}
		if req.FullName != nil {
			if name := strings.TrimSpace(*req.FullName); name != u.FullName {
				changes.add("full_name", u.FullName, name)
				u.FullName = name
			}
		}
		if req.Role != nil && *req.Role != u.Role {
			changes.add("role", string(u.Role), string(*req.Role))
			u.Role = *req.Role
		}
		if req.IsActive != nil && *req.IsActive != u.IsActive {
			changes.add("is_active", u.IsActive, *req.IsActive)
			u.IsActive = *req.IsActive
		}
		updated = u
		if len(changes) == 0 {
			return nil
		}
		if err := tx.UpdateUser(ctx, &u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = u
		return s.audit(ctx, tx, actor, models.AuditUpdate, models.EntityUser, u.ID, nil, models.JSONB(changes))
	})
	if err != nil {
		return models.User{}, err
	}
	return updated.Redacted(), nil
}

// ChangePassword replaces the actor's own password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
			return lifecycle.Validation("current password is incorrect")
		}
		u.PasswordHash = hash
		if err := tx.UpdateUser(ctx, &u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return s.audit(ctx, tx, actor, models.AuditUpdate, models.EntityUser, u.ID, nil, models.JSONB{"password": "changed"})
	})
}
