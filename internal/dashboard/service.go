package dashboard

import (
	"context"
	"math"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/plan"

	"golang.org/x/sync/errgroup"
)

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

type Service interface {
	// Today backs the staff dashboard.
	Today(ctx context.Context) (*Today, error)
	Overview(ctx context.Context) (*Overview, error)
	Revenue(ctx context.Context, period string) (*Revenue, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Today(ctx context.Context) (*Today, error) {
	from := startOfDay(s.now())
	return s.repo.Today(ctx, from, from.AddDate(0, 0, 1))
}

// Overview runs the independent rollups concurrently; the first failure
// cancels the rest.
func (s *service) Overview(ctx context.Context) (*Overview, error) {
	now := s.now()
	var (
		out      Overview
		statuses []StatusCount
		totals   *Totals
		today    *Today
		revenue  *Revenue
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		statuses, err = s.repo.MembersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.repo.Totals(ctx, startOfDay(now))
		return err
	})
	g.Go(func() (err error) {
		from := startOfDay(now)
		today, err = s.repo.Today(ctx, from, from.AddDate(0, 0, 1))
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.revenue(ctx, PeriodMonth, now)
		return err
	})
	g.Go(func() (err error) {
		out.Classes, err = s.classFill(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.MembersByStatus = make(map[string]int, len(statuses))
	for _, sc := range statuses {
		out.MembersByStatus[sc.Status] = sc.Count
	}
	out.Totals = *totals
	out.Today = *today
	out.Revenue = *revenue
	return &out, nil
}

func (s *service) Revenue(ctx context.Context, period string) (*Revenue, error) {
	if period == "" {
		period = PeriodMonth
	}
	return s.revenue(ctx, period, s.now())
}

func (s *service) revenue(ctx context.Context, period string, now time.Time) (*Revenue, error) {
	from, err := periodStart(period, now)
	if err != nil {
		return nil, err
	}

	byPlan, err := s.repo.RevenueByPlan(ctx, from, now)
	if err != nil {
		return nil, err
	}

	r := &Revenue{Period: period, From: from, To: now, ByPlan: byPlan}
	for _, p := range byPlan {
		r.Total += p.Revenue
		r.Subscriptions += p.Subscriptions
	}
	if r.Subscriptions > 0 {
		r.Average = plan.Money(math.Round(float64(r.Total) / float64(r.Subscriptions)))
	}
	return r, nil
}

func (s *service) classFill(ctx context.Context) ([]ClassFill, error) {
	classes, err := s.repo.ClassFill(ctx)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		if c := &classes[i]; c.Capacity > 0 {
			c.FillRate = math.Round(float64(c.Registered)/float64(c.Capacity)*100) / 100
		}
	}
	return classes, nil
}

func periodStart(period string, now time.Time) (time.Time, error) {
	day := startOfDay(now)
	switch period {
	case PeriodWeek:
		return day.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return day.AddDate(0, 0, 1-day.Day()), nil
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, apperr.Validation("Period must be one of week, month, year")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
