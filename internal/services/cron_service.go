package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	audit    *LedgerAuditService
	schedule string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewCronService creates a new CronService. schedule uses the six-field
// format with seconds: "second minute hour day month weekday".
func NewCronService(audit *LedgerAuditService, schedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithSeconds()),
		audit:    audit,
		schedule: schedule,
		timeout:  2 * time.Minute,
		logger:   logger,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.ledgerAuditJob); err != nil {
		return fmt.Errorf("failed to schedule ledger audit job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: ledger audit")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunLedgerAuditNow runs the audit job immediately
func (s *CronService) RunLedgerAuditNow() (*AuditReport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.audit.Audit(ctx)
}

func (s *CronService) ledgerAuditJob() {
	startTime := time.Now()

	report, err := s.RunLedgerAuditNow()
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Ledger audit failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"slots_checked": report.SlotsChecked,
		"violations":    len(report.Violations),
		"duration":      time.Since(startTime).String(),
	}).Info("[CRON] Ledger audit job done")
}
