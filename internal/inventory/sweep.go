package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
	"it-inventory-api/internal/notify"
)

// tierOrder is the order in which grouped alert emails go out
var tierOrder = []lifecycle.Tier{lifecycle.TierExpired, lifecycle.TierCritical, lifecycle.TierWarning}

// RunWarrantySweep runs the daily warranty sweep. The calendar day is
// claimed in the same transaction that records the notifications, so a
// second run on the same day is skipped unless force is set. Emails go out
// after the commit, one per tier; failures are counted and logged, never
// retried.
func (s *Service) RunWarrantySweep(ctx context.Context, force bool) (SweepReport, error) {
	now := s.now()
	report := SweepReport{RunDate: models.DateOf(now)}
	log := s.log.WithField("run_date", report.RunDate.String())

	recipients, err := s.store.NotificationRecipients(ctx)
	if err != nil {
		return report, fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		log.Warn("warranty sweep skipped: no active admin or technician to notify")
		s.metrics.sweepRun("no_recipients")
		report.Skipped = true
		report.Reason = "no recipients"
		return report, nil
	}
	report.Recipients = len(recipients)

	candidates, err := s.store.ListSweepCandidates(ctx)
	if err != nil {
		return report, fmt.Errorf("list sweep candidates: %w", err)
	}
	notes := lifecycle.Sweep(candidates, now, recipients)

	run := models.SweepRun{
		RunDate:           report.RunDate,
		RunID:             uuid.NewString(),
		StartedAt:         now,
		NotificationCount: len(notes),
	}
	claimed := false
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.ClaimSweepRun(ctx, &run, force)
		if err != nil {
			return fmt.Errorf("claim sweep run: %w", err)
		}
		if !ok {
			return nil
		}
		claimed = true
		for _, n := range notes {
			if err := tx.InsertNotification(ctx, &models.WarrantyNotification{
				AssetID:       n.AssetID,
				RunID:         run.RunID,
				Tier:          string(n.Tier),
				DaysRemaining: n.DaysRemaining,
				Recipients:    len(n.Recipients),
				SentAt:        now,
			}); err != nil {
				return fmt.Errorf("record notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.sweepRun("error")
		return report, err
	}
	if !claimed {
		log.Info("warranty sweep skipped: already ran today")
		s.metrics.sweepRun("already_ran")
		report.Skipped = true
		report.Reason = "already ran today"
		return report, nil
	}

	report.RunID = run.RunID
	report.Notifications = len(notes)
	report.ByTier = make(map[lifecycle.Tier]int)
	log = log.WithField("run_id", run.RunID)

	groups := lifecycle.GroupByTier(notes)
	for _, tier := range tierOrder {
		group := groups[tier]
		if len(group) == 0 {
			continue
		}
		report.ByTier[tier] = len(group)
		s.metrics.notification(tier, len(group))

		subject, body, err := notify.WarrantyAlert(tier, group, s.frontendURL)
		if err != nil {
			log.WithError(err).WithField("tier", tier).Error("render warranty alert")
			report.EmailsFailed++
			continue
		}
		err = s.sender.Send(ctx, recipients, subject, body)
		s.metrics.email("warranty_"+string(tier), err)
		if err != nil {
			log.WithError(err).WithField("tier", tier).Warn("warranty alert email failed")
			report.EmailsFailed++
			continue
		}
		report.EmailsSent++
	}

	s.metrics.sweepRun("completed")
	log.WithField("notifications", report.Notifications).
		WithField("emails_sent", report.EmailsSent).
		WithField("emails_failed", report.EmailsFailed).
		Info("warranty sweep completed")
	return report, nil
}
