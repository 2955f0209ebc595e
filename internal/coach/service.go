package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymflow/internal/api"
	"gymflow/internal/apperr"
	"gymflow/internal/auth"
	"gymflow/internal/logger"
	"gymflow/internal/notification"
	"gymflow/internal/user"

	"github.com/microcosm-cc/bluemonday"
)

const defaultPageSize = 10

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Assignment, error)
	List(ctx context.Context, f ListFilter) (*Page, error)
	Get(ctx context.Context, id int) (*Assignment, error)
	Update(ctx context.Context, id int, req UpdateRequest) (*Assignment, error)
	Delete(ctx context.Context, id int) error

	// MyUsers lists the members assigned to a coach.
	MyUsers(ctx context.Context, coachID int, f ListFilter) (*Page, error)
	// MyCoach returns the member's active assignment, or nil when none exists.
	MyCoach(ctx context.Context, userID int) (*Assignment, error)
}

type service struct {
	repo   Repository
	sink   notification.Sink
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewService(repo Repository, sink notification.Sink) Service {
	return &service{
		repo:   repo,
		sink:   sink,
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Assignment, error) {
	if req.CoachID == req.UserID {
		return nil, apperr.Validation("A user cannot be their own coach")
	}

	assigned, err := s.dateOrToday(req.AssignedDate)
	if err != nil {
		return nil, err
	}

	a := &Assignment{
		CoachID:      req.CoachID,
		UserID:       req.UserID,
		AssignedDate: assigned,
		IsActive:     true,
		Notes:        s.clean(req.Notes),
	}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		coach, err := checkCoach(ctx, tx, a.CoachID)
		if err != nil {
			return err
		}
		member, err := checkUser(ctx, tx, a.UserID)
		if err != nil {
			return err
		}
		a.Coach, a.Member = contactOf(coach), contactOf(member)
		return tx.Insert(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("coach assigned", "assignment_id", a.ID, "coach_id", a.CoachID, "user_id", a.UserID)
	s.sink.Notify(a.UserID,
		"Coach Assigned",
		fmt.Sprintf("%s is now your coach.", a.Coach.Name),
		notification.CategoryGeneral,
	)
	s.sink.Notify(a.CoachID,
		"New Client Assigned",
		fmt.Sprintf("%s has been assigned to you.", a.Member.Name),
		notification.CategoryGeneral,
	)
	return a, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}

	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Assignments: list, Pagination: api.NewPagination(f.Page, f.Limit, total)}, nil
}

func (s *service) Get(ctx context.Context, id int) (*Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id int, req UpdateRequest) (*Assignment, error) {
	var a *Assignment
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		a = locked

		// A demoted coach keeps existing assignments; only a change of coach
		// is checked against the role.
		if req.CoachID != nil && *req.CoachID != a.CoachID {
			coach, err := checkCoach(ctx, tx, *req.CoachID)
			if err != nil {
				return err
			}
			a.CoachID, a.Coach = coach.ID, contactOf(coach)
		}
		if req.UserID != nil && *req.UserID != a.UserID {
			member, err := checkUser(ctx, tx, *req.UserID)
			if err != nil {
				return err
			}
			a.UserID, a.Member = member.ID, contactOf(member)
		}
		if a.CoachID == a.UserID {
			return apperr.Validation("A user cannot be their own coach")
		}
		if req.AssignedDate != nil {
			d, err := s.dateOrToday(*req.AssignedDate)
			if err != nil {
				return err
			}
			a.AssignedDate = d
		}
		if req.IsActive != nil {
			a.IsActive = *req.IsActive
		}
		if req.Notes != nil {
			a.Notes = s.clean(*req.Notes)
		}
		return tx.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("coach assignment updated", "assignment_id", a.ID, "coach_id", a.CoachID, "user_id", a.UserID, "is_active", a.IsActive)
	return a, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("coach assignment deleted", "assignment_id", id)
	return nil
}

func (s *service) MyUsers(ctx context.Context, coachID int, f ListFilter) (*Page, error) {
	f.CoachID = coachID
	f.UserID = 0
	return s.List(ctx, f)
}

func (s *service) MyCoach(ctx context.Context, userID int) (*Assignment, error) {
	a, err := s.repo.ActiveFor(ctx, userID)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return a, err
}

func (s *service) dateOrToday(v string) (time.Time, error) {
	if v = strings.TrimSpace(v); v == "" {
		y, m, d := s.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperr.Validation("Assigned date must be a valid date")
	}
	return t, nil
}

func (s *service) clean(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
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

func checkUser(ctx context.Context, tx TxRepository, id int) (*user.User, error) {
	u, err := tx.GetUser(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, apperr.Validation("User not found")
	}
	return u, err
}
