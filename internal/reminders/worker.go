package reminders

import (
	"context"
	"fmt"
	"time"

	"cardetail/pkg/config"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/go-co-op/gocron/v2"
)

const DefaultJobTimeout = 2 * time.Minute

// BookingStore is the slice of the booking repository the worker needs.
type BookingStore interface {
	FindByDate(ctx context.Context, date string, statuses ...string) ([]*model.Booking, error)
	FindOpenUntil(ctx context.Context, date string) ([]*model.Booking, error)
	MarkOverdue(ctx context.Context, ids []string) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, eventType string, b *model.Booking, reason string)
}

// Worker runs two recurring jobs: a daily reminder for tomorrow's confirmed
// bookings and a periodic sweep that flags open bookings past their end.
type Worker struct {
	store           BookingStore
	notifier        Notifier
	loc             *time.Location
	reminderHour    int
	overdueInterval time.Duration
	jobTimeout      time.Duration
	log             *logger.Logger
	now             func() time.Time
	scheduler       gocron.Scheduler
}

func NewWorker(store BookingStore, notifier Notifier, cfg *config.Config) *Worker {
	loc := cfg.BusinessLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{
		store:           store,
		notifier:        notifier,
		loc:             loc,
		reminderHour:    cfg.ReminderCronHour,
		overdueInterval: cfg.OverdueCheckInterval,
		jobTimeout:      DefaultJobTimeout,
		log:             cfg.Log,
		now:             time.Now,
	}
}

func (w *Worker) Start() error {
	s, err := gocron.NewScheduler(gocron.WithLocation(w.loc))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(w.reminderHour), 0, 0))),
		gocron.NewTask(w.run, "send-reminders", w.sendReminders),
		gocron.WithName("send-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(w.overdueInterval),
		gocron.NewTask(w.run, "flag-overdue", w.flagOverdue),
		gocron.WithName("flag-overdue"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}

	w.scheduler = s
	s.Start()
	w.log.Info("Reminder worker started",
		"reminder_hour", w.reminderHour,
		"overdue_interval", w.overdueInterval,
		"timezone", w.loc.String(),
	)
	return nil
}

func (w *Worker) Shutdown() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}

func (w *Worker) run(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		w.log.Error("Scheduled job failed", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	w.log.Debug("Scheduled job finished", "job", name, "duration", time.Since(start))
}

func (w *Worker) sendReminders(ctx context.Context) error {
	_, err := w.SendReminders(ctx)
	return err
}

func (w *Worker) flagOverdue(ctx context.Context) error {
	_, err := w.FlagOverdue(ctx)
	return err
}

// SendReminders notifies every confirmed booking scheduled for tomorrow in
// the business timezone and returns how many were sent.
func (w *Worker) SendReminders(ctx context.Context) (int, error) {
	tomorrow := w.now().In(w.loc).AddDate(0, 0, 1).Format(model.DateLayout)

	bookings, err := w.store.FindByDate(ctx, tomorrow, model.BookingStatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to load bookings for %s: %w", tomorrow, err)
	}

	for _, b := range bookings {
		w.notifier.Notify(ctx, model.EventBookingReminder, b, "")
	}
	w.log.Info("Booking reminders sent", "date", tomorrow, "count", len(bookings))
	return len(bookings), nil
}

// FlagOverdue persists the overdue flag on open bookings whose window has ended.
func (w *Worker) FlagOverdue(ctx context.Context) (int64, error) {
	now := w.now()
	today := now.In(w.loc).Format(model.DateLayout)

	open, err := w.store.FindOpenUntil(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load open bookings: %w", err)
	}

	var ids []string
	for _, b := range open {
		if b.IsOverdue(now, w.loc) {
			ids = append(ids, b.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	flagged, err := w.store.MarkOverdue(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to flag %d overdue bookings: %w", len(ids), err)
	}
	w.log.Info("Overdue bookings flagged", "count", flagged)
	return flagged, nil
}
