package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	emailsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/email"
	dummydb "github.com/Zeta-Naidi/Muallim-1-sub002/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakePayments struct {
	groups  []payment.Group
	records []payment.Record
}

func (f fakePayments) Groups(context.Context, *payment.GroupFilter) ([]payment.Group, error) {
	return f.groups, nil
}

func (f fakePayments) Records(context.Context, *payment.QueryFilter) ([]payment.Record, error) {
	return f.records, nil
}

type fakeAdmins []user.User

func (f fakeAdmins) Admins(context.Context) ([]user.User, error) { return f, nil }

func newTestScheduler(t *testing.T, conf core.SchedulerConfig, admins fakeAdmins) (*Scheduler, *emailsvc.ConsoleService, *notification.Service) {
	t.Helper()
	appConf := &core.Config{AppName: "Muallim", TestMode: true, NotificationsMaxPerUser: 2}
	appConf.SetDefaultFromEmail("noreply@school.test")
	core.ParseEmailTemplates(appConf, nopLogger{})

	db, err := dummydb.Open()
	require.NoError(t, err)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), nopLogger{}, appConf)
	mailer := emailsvc.NewConsoleServiceMock(appConf, nopLogger{})

	payments := fakePayments{
		groups: []payment.Group{
			{ParentContact: "+393331234567", TotalOwed: 300, PaidAmount: 100, Remaining: 200, Status: payment.StatusPartial},
			{ParentContact: "+393337654321", TotalOwed: 300, PaidAmount: 300, Status: payment.StatusPaid},
		},
		records: []payment.Record{{ParentContact: "+393331234567", Amount: 100, Date: time.Now()}},
	}
	s, err := New(conf, Deps{
		Payments:      payments,
		Admins:        admins,
		Notifications: notifSvc,
		Mail:          mailer,
		Logger:        nopLogger{},
	})
	require.NoError(t, err)
	s.NowFunc = func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) }
	return s, mailer, notifSvc
}

func TestNew(t *testing.T) {
	s, _, _ := newTestScheduler(t, core.SchedulerConfig{PaymentDigest: "0 8 * * MON", NotificationTrim: "30 3 * * *"}, nil)
	assert.Equal(t, 2, s.Jobs())

	s, _, _ = newTestScheduler(t, core.SchedulerConfig{NotificationTrim: "@daily"}, nil)
	assert.Equal(t, 1, s.Jobs())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))

	_, err := New(core.SchedulerConfig{PaymentDigest: "every monday"}, Deps{Logger: nopLogger{}})
	assert.Error(t, err)
}

func TestScheduler_PaymentDigest(t *testing.T) {
	admins := fakeAdmins{
		{ID: "a1", Name: "Owner", Email: "owner@school.test"},
		{ID: "a2", Name: "Principal"},
	}
	s, mailer, notifSvc := newTestScheduler(t, core.SchedulerConfig{}, admins)
	ctx := context.Background()

	require.NoError(t, s.PaymentDigest(ctx))

	sent := mailer.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "Payments digest 04/03/2024", msg.Subject)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "owner@school.test", msg.To[0].Address)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "payments-2024-03-04.xlsx", msg.Attachments[0].Filename)
	assert.Contains(t, msg.TextContent, "Partial: 1")
	assert.Contains(t, msg.TextContent, "Outstanding: 200.00")

	for _, id := range []string{"a1", "a2"} {
		ns, err := notifSvc.List(ctx, id, notification.ListFilter{})
		require.NoError(t, err)
		require.Len(t, ns, 1)
		assert.Equal(t, notification.KindPaymentDigest, ns[0].Kind)
	}
}

func TestScheduler_PaymentDigestWithoutAdmins(t *testing.T) {
	s, mailer, _ := newTestScheduler(t, core.SchedulerConfig{}, nil)
	require.NoError(t, s.PaymentDigest(context.Background()))
	assert.Empty(t, mailer.SentMessages())
}

func TestScheduler_TrimNotifications(t *testing.T) {
	s, _, notifSvc := newTestScheduler(t, core.SchedulerConfig{}, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, notifSvc.Notify(ctx, notification.NewNotification{Kind: notification.KindHomeworkAssigned}, "u1"))
	}
	require.NoError(t, s.TrimNotifications(ctx))

	ns, err := notifSvc.List(ctx, "u1", notification.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, ns, 2)
}
