package services

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// ScheduleRepository is the slice of the shift repository the expander needs.
type ScheduleRepository interface {
	ListActiveSchedules(ctx context.Context) ([]models.ShiftSchedule, error)
	ScheduleDays(ctx context.Context, scheduleID int64) ([]models.ShiftScheduleDay, error)
	CreateShiftForSchedule(ctx context.Context, shift *models.Shift) (bool, error)
}

// ScheduleExpander materializes recurring schedules into shift rows over a
// look-ahead window. Expansion is idempotent: shifts that already exist for a
// (schedule, day) pair are left untouched, including any nurse assignment
// made after they were created.
type ScheduleExpander struct {
	repo      ScheduleRepository
	lookAhead time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewScheduleExpander(repo ScheduleRepository, lookAhead, interval time.Duration, logger *zap.Logger) *ScheduleExpander {
	return &ScheduleExpander{
		repo:      repo,
		lookAhead: lookAhead,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// ExpandAll expands every active schedule.
func (e *ScheduleExpander) ExpandAll(ctx context.Context) error {
	schedules, err := e.repo.ListActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active schedules: %w", err)
	}

	now := e.now()
	until := now.Add(e.lookAhead)
	var created int

	for _, schedule := range schedules {
		n, err := e.expandSchedule(ctx, &schedule, now, until)
		if err != nil {
			return fmt.Errorf("failed to expand schedule %d: %w", schedule.ID, err)
		}
		created += n
	}

	if created > 0 {
		e.logger.Info("expanded schedules into shifts",
			zap.Int("schedules", len(schedules)), zap.Int("shifts_created", created))
	}
	return nil
}

func (e *ScheduleExpander) expandSchedule(ctx context.Context, schedule *models.ShiftSchedule, from, until time.Time) (int, error) {
	rule, err := rrule.StrToRRule(schedule.RRule)
	if err != nil {
		return 0, fmt.Errorf("invalid rrule: %w", err)
	}
	rule.DTStart(schedule.StartDate)

	days, err := e.repo.ScheduleDays(ctx, schedule.ID)
	if err != nil {
		return 0, err
	}
	nurseByWeekday := make(map[int]*int64, len(days))
	for _, day := range days {
		nurseByWeekday[day.Weekday] = day.NurseID
	}

	var created int
	for _, occurrence := range rule.Between(from, until, true) {
		day := occurrence.Truncate(24 * time.Hour)
		shift := &models.Shift{
			ReservationID: schedule.ReservationID,
			NurseID:       nurseByWeekday[mondayWeekday(day)],
			ScheduleID:    &schedule.ID,
			Day:           day,
			Month:         day.Format("2006-01"),
			Status:        models.ShiftScheduled,
		}
		inserted, err := e.repo.CreateShiftForSchedule(ctx, shift)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// mondayWeekday maps time.Weekday (Sunday = 0) onto the schedule-day
// convention (Monday = 0).
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Run expands immediately and then on every tick until the context is
// cancelled.
func (e *ScheduleExpander) Run(ctx context.Context) error {
	if err := e.ExpandAll(ctx); err != nil {
		e.logger.Error("schedule expansion failed", zap.Error(err))
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.ExpandAll(ctx); err != nil {
				e.logger.Error("schedule expansion failed", zap.Error(err))
			}
		}
	}
}
