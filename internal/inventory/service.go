// Package inventory runs the asset, employee and user operations over a
// transactional store. Every state change loads its rows with a lock,
// applies the lifecycle rules and writes the result together with its
// audit entry in the same transaction.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/models"
	"it-inventory-api/internal/notify"
	"it-inventory-api/pkg/importer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user account is inactive")
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID int64
}

func (a Actor) userID() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

type Service struct {
	store       Store
	sender      notify.Sender
	log         logrus.FieldLogger
	clock       Clock
	loc         *time.Location
	metrics     *Metrics
	frontendURL string
	mapping     *importer.MappingConfig
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the time zone that decides calendar dates
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithFrontendURL(u string) Option {
	return func(s *Service) { s.frontendURL = u }
}

// WithMapping replaces the built-in import column mapping
func WithMapping(m *importer.MappingConfig) Option {
	return func(s *Service) {
		if m != nil {
			s.mapping = m
		}
	}
}

func New(store Store, sender notify.Sender, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		sender:  sender,
		log:     log,
		clock:   ClockFunc(time.Now),
		loc:     time.UTC,
		mapping: importer.DefaultMapping(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

func (s *Service) today() models.Date {
	return models.DateOf(s.now())
}

func (s *Service) audit(ctx context.Context, tx Tx, actor Actor, action models.AuditAction, entity string, entityID int64, assetID *int64, changes models.JSONB) error {
	id := entityID
	return tx.InsertAudit(ctx, &models.AuditEntry{
		UserID:     actor.userID(),
		AssetID:    assetID,
		Action:     action,
		EntityType: entity,
		EntityID:   &id,
		Changes:    changes,
	})
}
