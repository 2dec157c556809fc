package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nergy-se/heatcontrol/pkg/alarm"
	"github.com/nergy-se/heatcontrol/pkg/allocator"
	"github.com/nergy-se/heatcontrol/pkg/clock"
	"github.com/nergy-se/heatcontrol/pkg/plan"
	"github.com/nergy-se/heatcontrol/pkg/price"
	"github.com/sirupsen/logrus"
)

// Refresh fetches the prices of day and plans it. Failures are retried after
// the configured backoff until it succeeds or ctx is done. If day is over
// before a retry succeeds the current day is planned instead.
func (a *App) Refresh(ctx context.Context, day time.Time) error {
	target := clock.Day(day.In(a.location))
	return retry(ctx, a.clock, a.config.RetryBackoff, func(attempt int) error {
		today := clock.Day(a.clock.Now().In(a.location))
		if target.Before(today) {
			logrus.WithFields(logrus.Fields{
				"from": target.Format("2006-01-02"),
				"to":   today.Format("2006-01-02"),
			}).Warn("day passed while fetching prices, planning current day")
			target = today
		}

		err := a.planDay(ctx, target)
		if err != nil {
			a.raise(alarm.PriceFetch, fmt.Errorf("attempt %d: %w", attempt, err))
			return err
		}
		a.clear(alarm.PriceFetch)
		return nil
	})
}

func (a *App) planDay(ctx context.Context, day time.Time) error {
	set, err := a.source.Prices(ctx, day)
	if err != nil {
		return fmt.Errorf("error fetching prices for %s: %w", day.Format("2006-01-02"), err)
	}
	if !set.FullDay() {
		return fmt.Errorf("%w: got %d hours for %s", price.ErrUnsupportedDay, set.Len(), day.Format("2006-01-02"))
	}

	allocation, err := allocator.Allocate(set, a.config.Policy())
	if err != nil {
		return err
	}
	a.plans.Set(allocation)
	logStatistics(set, allocation, a.config.ZeroPowerHours+a.config.HalfPowerHours)

	if a.audit != nil {
		if err := a.audit.SaveSchedule(ctx, allocation); err != nil {
			logrus.Errorf("error saving schedule: %s", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishPlan(allocation); err != nil {
			logrus.Errorf("error publishing plan: %s", err)
		}
	}

	if allocation.Date().Equal(clock.Day(a.clock.Now().In(a.location))) {
		a.Tick(ctx)
	}
	return nil
}

func logStatistics(set *price.Set, allocation *plan.Allocation, n int) {
	fields := logrus.Fields{
		"date": allocation.Date().Format("2006-01-02"),
		"zero": hours(allocation.ZeroHours()),
		"half": hours(allocation.HalfHours()),
	}
	if avg, err := set.AveragePrice(); err == nil {
		fields["average"] = avg
	}
	if avg, err := set.AveragePriceOfNLowest(3); err == nil {
		fields["averageLowest3"] = avg
	}
	if spread, err := set.SpreadBetweenHighestAndLowest(n); err == nil {
		fields["spread"] = spread
	}
	logrus.WithFields(fields).Info("planned day")
}

func hours(records []price.Record) []int {
	h := make([]int, 0, len(records))
	for _, r := range records {
		h = append(h, r.Hour)
	}
	return h
}

// clockTimer lets backoff wait on the app clock.
type clockTimer struct {
	clock clock.Clock
	c     <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	t.c = t.clock.After(d)
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time {
	return t.c
}

// retry calls fn with a constant interval between attempts until it succeeds
// or ctx is done. A panic in fn counts as a failed attempt.
func retry(ctx context.Context, c clock.Clock, interval time.Duration, fn func(attempt int) error) error {
	attempt := 0
	operation := func() (err error) {
		attempt++
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("attempt %d panicked: %v", attempt, r)
				logrus.WithField("attempt", attempt).Error(err)
			}
		}()
		return fn(attempt)
	}
	notify := func(err error, next time.Duration) {
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": next.String(),
		}).Warnf("retrying after error: %s", err)
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	return backoff.RetryNotifyWithTimer(operation, b, notify, &clockTimer{clock: c})
}
