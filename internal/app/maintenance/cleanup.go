package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/monitoring"
	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/logger"
	"github.com/mdnaeem95/halaltech/pkg/mail"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultReminderInterval   = 24 * time.Hour
	defaultSessionSpec        = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultReminderSpec       = "0 9 * * *"
	defaultCacheSpec          = "@hourly"

	jobSessions  = "sessions"
	jobAudit     = "audit"
	jobReminders = "invoice_reminders"
	jobCache     = "cache"
)

// Cleaner coordinates background maintenance: expired session purging, audit
// retention, overdue invoice reminders and SQL cache expiry.
type Cleaner struct {
	sessions      *iauth.SessionService
	audit         *services.AuditService
	invoices      *services.InvoiceService
	notifications *services.NotificationService
	mailer        mail.Mailer
	cacheStore    *cache.DatabaseStore
	tracker       *monitoring.JobTracker
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	retention     int
	interval      time.Duration

	sessionSchedule  string
	auditSchedule    string
	reminderSchedule string
	cacheSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithInvoiceReminders enables overdue invoice reminders. Each invoice is
// reminded at most once per interval.
func WithInvoiceReminders(invoices *services.InvoiceService, notifications *services.NotificationService, mailer mail.Mailer, interval time.Duration) Option {
	return func(cleaner *Cleaner) {
		cleaner.invoices = invoices
		cleaner.notifications = notifications
		cleaner.mailer = mailer
		if interval > 0 {
			cleaner.interval = interval
		}
	}
}

// WithCachePurge enables removal of expired SQL cache rows.
func WithCachePurge(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.cacheStore = store
	}
}

// WithJobTracker records every job run for the maintenance health probe.
func WithJobTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// Schedules overrides the cron specifications. Empty values keep the defaults.
type Schedules struct {
	Sessions  string
	Audit     string
	Reminders string
	Cache     string
}

// WithSchedules overrides cron specifications for every job.
func WithSchedules(s Schedules) Option {
	return func(cleaner *Cleaner) {
		if s.Sessions != "" {
			cleaner.sessionSchedule = s.Sessions
		}
		if s.Audit != "" {
			cleaner.auditSchedule = s.Audit
		}
		if s.Reminders != "" {
			cleaner.reminderSchedule = s.Reminders
		}
		if s.Cache != "" {
			cleaner.cacheSchedule = s.Cache
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding job being skipped.
func NewCleaner(sessions *iauth.SessionService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:         sessions,
		audit:            audit,
		now:              func() time.Time { return time.Now().UTC() },
		retention:        defaultAuditRetentionDays,
		interval:         defaultReminderInterval,
		sessionSchedule:  defaultSessionSpec,
		auditSchedule:    defaultAuditSpec,
		reminderSchedule: defaultReminderSpec,
		cacheSchedule:    defaultCacheSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

type job struct {
	name     string
	schedule string
	run      func(context.Context) error
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.sessions != nil {
		jobs = append(jobs, job{jobSessions, c.sessionSchedule, c.cleanupSessions})
	}
	if c.audit != nil && c.retention > 0 {
		jobs = append(jobs, job{jobAudit, c.auditSchedule, c.cleanupAudit})
	}
	if c.invoices != nil {
		jobs = append(jobs, job{jobReminders, c.reminderSchedule, c.sendReminders})
	}
	if c.cacheStore != nil {
		jobs = append(jobs, job{jobCache, c.cacheSchedule, c.purgeCache})
	}
	return jobs
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		c.tracker.Register(j.name)
		if _, err := c.cron.AddFunc(j.schedule, func() {
			if err := c.execute(context.Background(), j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	startedAt, began := c.now(), time.Now()
	err := j.run(ctx)
	c.tracker.RecordRun(j.name, startedAt, time.Since(began), err)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.MaintenanceRuns.WithLabelValues(j.name, result).Inc()
	return err
}

func (c *Cleaner) cleanupSessions(ctx context.Context) error {
	removed, err := c.sessions.CleanupExpired(ctx)
	if err == nil && removed > 0 {
		c.log.Info("expired sessions removed", zap.Int64("count", removed))
	}
	return err
}

func (c *Cleaner) cleanupAudit(ctx context.Context) error {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err == nil && removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("count", removed), zap.Int("retention_days", c.retention))
	}
	return err
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	_, err := c.cacheStore.PurgeExpired(ctx)
	return err
}

// sendReminders notifies clients about overdue invoices. A failed email never
// blocks the in-app notification or the reminder stamp.
func (c *Cleaner) sendReminders(ctx context.Context) error {
	now := c.now()
	invoices, err := c.invoices.OverdueForReminder(ctx, now, c.interval)
	if err != nil {
		return err
	}

	var errs error
	for i := range invoices {
		invoice := &invoices[i]
		if invoice.Project == nil {
			continue
		}
		c.remind(ctx, invoice)
		errs = multierr.Append(errs, c.invoices.MarkReminded(ctx, invoice.ID, now))
	}
	if len(invoices) > 0 {
		c.log.Info("overdue invoice reminders sent", zap.Int("count", len(invoices)))
	}
	return errs
}

func (c *Cleaner) remind(ctx context.Context, invoice *models.Invoice) {
	project := invoice.Project
	c.notifications.Notify(ctx, services.CreateNotificationInput{
		Type:      models.NotificationInvoiceOverdue,
		Title:     "Invoice " + invoice.InvoiceNumber + " is overdue",
		Message:   "Payment for \"" + project.Title + "\" was due on " + invoice.DueDate.Format("2 Jan 2006") + ".",
		Severity:  "warning",
		ActionURL: "/invoices/" + invoice.ID,
		Metadata:  map[string]any{"invoice_id": invoice.ID, "project_id": project.ID},
	}, project.ClientID)

	if project.Client == nil || project.Client.Email == "" {
		return
	}
	data := map[string]any{
		"Name":          project.Client.FullName,
		"InvoiceNumber": invoice.InvoiceNumber,
		"ProjectTitle":  project.Title,
		"DueDate":       invoice.DueDate.Format("2 Jan 2006"),
		"Currency":      invoice.Currency,
		"Total":         invoice.TotalAmount,
	}
	if err := services.SendEmail(ctx, c.mailer, services.InvoiceOverdueEmail, data, project.Client.Email); err != nil {
		c.log.Warn("overdue reminder email failed", zap.String("invoice_id", invoice.ID), zap.Error(err))
	}
}
