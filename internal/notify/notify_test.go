package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/config"
	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/logger"
	"it-inventory-api/internal/models"
)

func TestNewSenderFallsBackToLog(t *testing.T) {
	s := NewSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, logger.Discard())
	_, ok := s.(*LogSender)
	require.True(t, ok)

	err := s.Send(context.Background(), []string{"a@example.com"}, "hi", "<p>hi</p>")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPSenderSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s := &SMTPSender{
		cfg: config.SMTPConfig{Host: "smtp.example.com", Port: 2525, User: "u", Password: "p", From: "IT Team <it@example.com>"},
		log: logger.Discard(),
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
			return nil
		},
	}

	err := s.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Hello", "<p>line1\nline2</p>")
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "it@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "line1\r\nline2")
}

func TestSMTPSenderErrors(t *testing.T) {
	s := &SMTPSender{
		cfg: config.SMTPConfig{Host: "h", Port: 25, User: "u", Password: "p", From: "x@example.com"},
		log: logger.Discard(),
		send: func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		},
	}

	assert.Error(t, s.Send(context.Background(), nil, "s", "b"))
	assert.ErrorContains(t, s.Send(context.Background(), []string{"a@example.com"}, "s", "b"), "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, []string{"a@example.com"}, "s", "b"), context.Canceled)
}

func TestWarrantyAlert(t *testing.T) {
	notes := []lifecycle.Notification{
		{AssetTag: "LAP-001", AssetName: "ThinkPad <X1>", WarrantyEnd: models.NewDate(2024, 6, 1), DaysRemaining: -14, Tier: lifecycle.TierExpired, AssignedToName: lo.ToPtr("Ana Ruiz")},
		{AssetTag: "LAP-002", AssetName: "MacBook", SerialNumber: lo.ToPtr("SN-9"), WarrantyEnd: models.NewDate(2024, 7, 1), DaysRemaining: -1, Tier: lifecycle.TierExpired},
	}

	subject, body, err := WarrantyAlert(lifecycle.TierExpired, notes, "https://it.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "Warranty Alert: 2 asset(s) have already expired", subject)
	assert.Contains(t, body, "Expired 14 days ago")
	assert.Contains(t, body, "Serial: N/A")
	assert.Contains(t, body, "Serial: SN-9")
	assert.Contains(t, body, "Assigned to: Ana Ruiz")
	assert.Contains(t, body, "https://it.example.com/warranties")
	assert.Contains(t, body, "ThinkPad &lt;X1&gt;")
	assert.Equal(t, 1, strings.Count(body, "Assigned to:"))
}

func TestAssignment(t *testing.T) {
	d := models.DateOf(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	asset := models.Asset{AssetTag: "MON-004", Name: "Dell U2720Q", AssetType: models.AssetTypeMonitor, AssignedDate: &d}

	subject, body, err := Assignment(models.Employee{FullName: "Lee Chan"}, asset)
	require.NoError(t, err)
	assert.Equal(t, "IT Equipment Assigned: Dell U2720Q", subject)
	assert.Contains(t, body, "Hello Lee Chan,")
	assert.Contains(t, body, "March 05, 2024")
	assert.Contains(t, body, "monitor")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
	require.Len(t, r.Messages(), 1)

	r.Err = errors.New("down")
	assert.Error(t, r.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
	assert.Len(t, r.Messages(), 1)
}
