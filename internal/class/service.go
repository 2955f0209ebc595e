package class

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymflow/internal/api"
	"gymflow/internal/apperr"
	"gymflow/internal/auth"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notification"
	"gymflow/internal/user"

	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultCapacity = 20
	defaultDuration = 60
	defaultPageSize = 10
	scheduleLayout  = "15:04"
	bookingLayout   = "2006-01-02"
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

type Service interface {
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Class, error)
	List(ctx context.Context, f ListFilter) (*Page, error)
	Get(ctx context.Context, id int) (*Class, error)
	Update(ctx context.Context, id int, actor Actor, req UpdateRequest) (*Class, error)
	UpdateCapacity(ctx context.Context, id, capacity int) (*Class, error)
	Delete(ctx context.Context, id int) error
	Cancel(ctx context.Context, id int, actor Actor) (*Class, error)

	ListMine(ctx context.Context, coachID int, f ListFilter) (*Page, error)
	ListJoined(ctx context.Context, userID int) ([]Class, error)
	Participants(ctx context.Context, id int, actor Actor) ([]Registrant, error)

	Join(ctx context.Context, id, userID int, req JoinRequest) (*Class, error)
	Leave(ctx context.Context, id, userID int, req LeaveRequest) (*Class, error)
}

type service struct {
	repo   Repository
	sink   notification.Sink
	policy *bluemonday.Policy
}

func NewService(repo Repository, sink notification.Sink) Service {
	return &service{
		repo:   repo,
		sink:   sink,
		policy: bluemonday.StrictPolicy(),
	}
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Class, error) {
	scheduleTime, days, err := validateSchedule(req.ScheduleTime, req.ScheduleDays)
	if err != nil {
		return nil, err
	}

	c := &Class{
		Name:            strings.TrimSpace(req.Name),
		Description:     s.clean(req.Description),
		CoachID:         req.CoachID,
		Capacity:        req.Capacity,
		DurationMinutes: req.DurationMinutes,
		ScheduleTime:    scheduleTime,
		ScheduleDays:    days,
		Price:           req.Price,
		Status:          StatusAvailable,
		IsActive:        true,
	}
	if c.Capacity == 0 {
		c.Capacity = defaultCapacity
	}
	if c.DurationMinutes == 0 {
		c.DurationMinutes = defaultDuration
	}
	if c.CoachID == nil && actor.Role == auth.RoleCoach {
		c.CoachID = &actor.ID
	}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		if c.CoachID != nil {
			coach, err := checkCoach(ctx, tx, *c.CoachID)
			if err != nil {
				return err
			}
			c.CoachName = &coach.Name
		}
		return tx.Insert(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	c.setRegistrants(nil)
	logger.Info("class created", "class_id", c.ID, "created_by", actor.ID)
	return c, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	f.Search = strings.TrimSpace(f.Search)

	classes, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Classes: classes, Pagination: api.NewPagination(f.Page, f.Limit, total)}, nil
}

func (s *service) Get(ctx context.Context, id int) (*Class, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id int, actor Actor, req UpdateRequest) (*Class, error) {
	var c *Class
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		c = locked
		if !canManage(c, actor) {
			return apperr.Permission("You can only update your own classes")
		}

		if req.CoachID != nil && (c.CoachID == nil || *req.CoachID != *c.CoachID) {
			coach, err := checkCoach(ctx, tx, *req.CoachID)
			if err != nil {
				return err
			}
			c.CoachID = req.CoachID
			c.CoachName = &coach.Name
		}
		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			c.Description = s.clean(*req.Description)
		}
		if req.DurationMinutes != nil {
			c.DurationMinutes = *req.DurationMinutes
		}
		if req.Price != nil {
			c.Price = *req.Price
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		if req.ScheduleTime != nil || req.ScheduleDays != nil {
			t := c.ScheduleTime
			if req.ScheduleTime != nil {
				t = req.ScheduleTime
			}
			days := []string(c.ScheduleDays)
			if req.ScheduleDays != nil {
				days = req.ScheduleDays
			}
			scheduleTime, scheduleDays, err := validateSchedule(deref(t), days)
			if err != nil {
				return err
			}
			c.ScheduleTime, c.ScheduleDays = scheduleTime, scheduleDays
		}
		if req.Capacity != nil {
			if err := resize(c, *req.Capacity); err != nil {
				return err
			}
		}

		return tx.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class updated", "class_id", id, "updated_by", actor.ID)
	return c, nil
}

func (s *service) UpdateCapacity(ctx context.Context, id, capacity int) (c *Class, err error) {
	defer func() { s.record("capacity", err) }()

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		c = locked
		if err := resize(c, capacity); err != nil {
			return err
		}
		return tx.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class capacity updated", "class_id", id, "capacity", capacity, "status", c.Status)
	return c, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("class deleted", "class_id", id)
	return nil
}

func (s *service) Cancel(ctx context.Context, id int, actor Actor) (c *Class, err error) {
	defer func() { s.record("cancel", err) }()

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		c = locked
		if c.Status == StatusCancelled {
			return apperr.InvalidState("Class is already cancelled")
		}
		c.Status = StatusCancelled
		return tx.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class cancelled", "class_id", id, "cancelled_by", actor.ID, "registrants", c.RegisteredCount)

	ids := make([]int, len(c.RegisteredUsers))
	for i, r := range c.RegisteredUsers {
		ids[i] = r.UserID
	}
	s.sink.NotifyMany(ids,
		"Class Cancelled",
		fmt.Sprintf("%s has been cancelled. We are sorry for the inconvenience.", c.Name),
		notification.CategoryClass,
	)
	return c, nil
}

func (s *service) ListMine(ctx context.Context, coachID int, f ListFilter) (*Page, error) {
	f.CoachID = coachID
	return s.List(ctx, f)
}

func (s *service) ListJoined(ctx context.Context, userID int) ([]Class, error) {
	return s.repo.ListJoined(ctx, userID)
}

func (s *service) Participants(ctx context.Context, id int, actor Actor) ([]Registrant, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(c, actor) {
		return nil, apperr.Permission("You can only view participants of your own classes")
	}
	return c.RegisteredUsers, nil
}

// Join books userID into the class. The class row lock makes the capacity
// check and the insert one step, so concurrent joins cannot overfill it.
func (s *service) Join(ctx context.Context, id, userID int, req JoinRequest) (c *Class, err error) {
	defer func() { s.record("join", err) }()

	var bookingDate *time.Time
	if req.BookingDate != "" {
		d, perr := time.Parse(bookingLayout, req.BookingDate)
		if perr != nil {
			return nil, apperr.Validation("Booking date must be a valid date (YYYY-MM-DD)")
		}
		bookingDate = &d
	}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		c = locked
		if !c.IsActive || c.Status == StatusCancelled {
			return apperr.InvalidState("Class is not available for booking")
		}

		member, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !member.CanTrain() {
			return apperr.InvalidState("Your membership must be active to join classes")
		}
		if c.IsRegistered(userID) {
			return apperr.Conflict("You are already registered for this class")
		}
		if c.Status == StatusFull || c.RegisteredCount >= c.Capacity {
			return apperr.Conflict("Class is full")
		}

		reg := Registrant{
			ClassID:     c.ID,
			UserID:      member.ID,
			Name:        member.Name,
			Email:       member.Email,
			BookingDate: bookingDate,
			Notes:       s.clean(req.Notes),
		}
		if err := tx.AddRegistrant(ctx, &reg); err != nil {
			return err
		}
		c.setRegistrants(append(c.RegisteredUsers, reg))

		if status := c.statusFor(c.RegisteredCount); status != c.Status {
			c.Status = status
			return tx.Update(ctx, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class joined", "class_id", id, "user_id", userID, "registered", c.RegisteredCount, "capacity", c.Capacity)

	s.sink.Notify(userID,
		"Class Booking Confirmed",
		fmt.Sprintf("You are registered for %s.%s", c.Name, scheduleText(c)),
		notification.CategoryClass,
	)
	return c, nil
}

func (s *service) Leave(ctx context.Context, id, userID int, req LeaveRequest) (c *Class, err error) {
	defer func() { s.record("leave", err) }()

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		c = locked

		removed, err := tx.RemoveRegistrant(ctx, id, userID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.Conflict("You are not registered for this class")
		}

		rest := make([]Registrant, 0, len(c.RegisteredUsers))
		for _, r := range c.RegisteredUsers {
			if r.UserID != userID {
				rest = append(rest, r)
			}
		}
		c.setRegistrants(rest)

		if status := c.statusFor(c.RegisteredCount); status != c.Status {
			c.Status = status
			return tx.Update(ctx, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("class left", "class_id", id, "user_id", userID, "reason", s.clean(req.Reason))

	s.sink.Notify(userID,
		"Class Booking Cancelled",
		fmt.Sprintf("You are no longer registered for %s.", c.Name),
		notification.CategoryClass,
	)
	return c, nil
}

func (s *service) record(action string, err error) {
	metrics.RecordClassBooking(action, apperr.Label(err))
}

func (s *service) clean(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// resize applies a new capacity, refusing to drop below the current
// registrations, and recomputes the booking status.
func resize(c *Class, capacity int) error {
	if capacity < 1 || capacity > 100 {
		return apperr.Validation("Capacity must be between 1 and 100")
	}
	if capacity < c.RegisteredCount {
		return apperr.Validation("Cannot reduce capacity below current registrations (%d)", c.RegisteredCount)
	}
	c.Capacity = capacity
	c.Status = c.statusFor(c.RegisteredCount)
	c.derive()
	return nil
}

func checkCoach(ctx context.Context, tx TxRepository, id int) (*user.User, error) {
	coach, err := tx.GetUser(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Validation("Coach not found or invalid role")
		}
		return nil, err
	}
	if coach.Role != auth.RoleCoach && coach.Role != auth.RoleAdmin {
		return nil, apperr.Validation("Coach not found or invalid role")
	}
	return coach, nil
}

// canManage: admins manage every class, coaches only their own.
func canManage(c *Class, actor Actor) bool {
	if actor.Role == auth.RoleAdmin {
		return true
	}
	return actor.Role == auth.RoleCoach && c.CoachID != nil && *c.CoachID == actor.ID
}

func validateSchedule(t string, days []string) (*string, []string, error) {
	var scheduleTime *string
	if t = strings.TrimSpace(t); t != "" {
		parsed, err := time.Parse(scheduleLayout, t)
		if err != nil {
			return nil, nil, apperr.Validation("Schedule time must be in HH:MM format")
		}
		formatted := parsed.Format(scheduleLayout)
		scheduleTime = &formatted
	}

	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToLower(strings.TrimSpace(d))
		if !weekdays[d] {
			return nil, nil, apperr.Validation("Unknown schedule day: %s", d)
		}
		out = append(out, d)
	}
	return scheduleTime, out, nil
}

func scheduleText(c *Class) string {
	if c.ScheduleTime == nil || len(c.ScheduleDays) == 0 {
		return ""
	}
	return fmt.Sprintf(" It meets %s at %s.", strings.Join(c.ScheduleDays, ", "), *c.ScheduleTime)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
