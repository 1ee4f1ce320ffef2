// Package scheduler runs the periodic jobs of the platform.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

const jobTimeout = 5 * time.Minute

type (
	PaymentSource interface {
		Groups(ctx context.Context, filter *payment.GroupFilter) ([]payment.Group, error)
		Records(ctx context.Context, filter *payment.QueryFilter) ([]payment.Record, error)
	}

	AdminSource interface {
		Admins(ctx context.Context) ([]user.User, error)
	}

	Notifications interface {
		Notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) error
		TrimAll(ctx context.Context) (int, error)
	}

	Deps struct {
		Payments      PaymentSource
		Admins        AdminSource
		Notifications Notifications
		Mail          core.EmailService
		Logger        core.Logger
	}

	Scheduler struct {
		Deps
		cron    *cron.Cron
		NowFunc func() time.Time
	}
)

// cronLogger reports the cron events to the application logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), append([]interface{}{err}, keysAndValues...)...)
}

// New registers the configured jobs. A job with an empty spec is disabled.
func New(conf core.SchedulerConfig, deps Deps) (*Scheduler, error) {
	logger := cronLogger{logger: deps.Logger}
	s := &Scheduler{
		Deps:    deps,
		NowFunc: time.Now,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"payment digest", conf.PaymentDigest, s.PaymentDigest},
		{"notification trim", conf.NotificationTrim, s.TrimNotifications},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := job.run(ctx); err != nil {
				s.Logger.Error(fmt.Sprintf("running %s: %v", job.name, err), err)
			}
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scheduling %s with %q", job.name, job.spec)
		}
	}
	return s, nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for the running jobs, up to the deadline of ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

// PaymentDigest emails the payments summary to the admins, with the payments workbook attached,
// and notifies them in-app.
func (s *Scheduler) PaymentDigest(ctx context.Context) error {
	admins, err := s.Admins.Admins(ctx)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	if len(admins) == 0 {
		return nil
	}

	groups, err := s.Payments.Groups(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "computing payment groups")
	}
	records, err := s.Payments.Records(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "querying payment records")
	}
	summary := payment.Summarize(groups)
	today := s.NowFunc().Format("02/01/2006")

	var buf bytes.Buffer
	if err = report.WritePayments(&buf, groups, records); err != nil {
		return err
	}

	msg := &core.EmailMessage{
		Subject:      "Payments digest " + today,
		TemplateName: "payment_digest",
		TemplateData: map[string]interface{}{
			"Date":        today,
			"Groups":      summary.Groups,
			"Paid":        summary.Paid,
			"Partial":     summary.Partial,
			"Unpaid":      summary.Unpaid,
			"Exempted":    summary.Exempted,
			"TotalOwed":   summary.TotalOwed,
			"TotalPaid":   summary.TotalPaid,
			"Outstanding": summary.Outstanding,
		},
	}
	ids := make([]string, 0, len(admins))
	for _, adm := range admins {
		ids = append(ids, adm.ID)
		if adm.Email != "" {
			msg.To = append(msg.To, mail.Address{Name: adm.Name, Address: adm.Email})
		}
	}
	fileName := "payments-" + s.NowFunc().Format("2006-01-02") + ".xlsx"
	if err = msg.Attach(&buf, fileName, report.ContentType); err != nil {
		return errors.Wrap(err, "attaching payments workbook")
	}
	if msg.HasRecipients() {
		s.Mail.SendMessages(msg)
	}

	nn := notification.NewNotification{
		Kind:    notification.KindPaymentDigest,
		Title:   "Payments digest " + today,
		Message: fmt.Sprintf("%d families, %.2f outstanding", summary.Groups, summary.Outstanding),
		Link:    "/payments",
	}
	if err = s.Notifications.Notify(ctx, nn, ids...); err != nil {
		s.Logger.Warn(fmt.Sprintf("sending %s notification: %v", nn.Kind, err), err)
	}
	return nil
}

// TrimNotifications shrinks the notification feeds to their configured maximum.
func (s *Scheduler) TrimNotifications(ctx context.Context) error {
	removed, err := s.Notifications.TrimAll(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.Logger.Info(fmt.Sprintf("trimmed %d notifications", removed))
	}
	return nil
}
