package attendance

import (
	"context"
	"fmt"
	"strings"

	"gymflow/internal/apperr"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"

	"github.com/microcosm-cc/bluemonday"
)

const defaultLimit = 20

type Service interface {
	CheckIn(ctx context.Context, staffID int, req CheckInRequest) (*Record, error)
	CheckOut(ctx context.Context, staffID int, req CheckOutRequest) (*Record, error)
	ListForUser(ctx context.Context, userID int, q ListQuery) ([]Record, error)
}

type service struct {
	repo   Repository
	policy *bluemonday.Policy
}

func NewService(repo Repository) Service {
	return &service{
		repo:   repo,
		policy: bluemonday.StrictPolicy(),
	}
}

// CheckIn opens a visit. Frozen members may still train, so only
// CanTrain is checked.
func (s *service) CheckIn(ctx context.Context, staffID int, req CheckInRequest) (*Record, error) {
	var rec *Record
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		u, err := tx.LockUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !u.CanTrain() {
			return apperr.InvalidState("User must have an active subscription to check in")
		}

		open, err := tx.OpenVisit(ctx, u.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.Conflict("User is already checked in")
		}

		rec = &Record{
			UserID:     u.ID,
			UserName:   u.Name,
			RecordedBy: &staffID,
			Notes:      s.clean(req.Notes),
		}
		return tx.Insert(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAttendance("check_in")
	logger.Info("member checked in", "user_id", rec.UserID, "recorded_by", staffID)
	return rec, nil
}

func (s *service) CheckOut(ctx context.Context, staffID int, req CheckOutRequest) (*Record, error) {
	var rec *Record
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		if _, err := tx.LockUser(ctx, req.UserID); err != nil {
			return err
		}

		open, err := tx.OpenVisit(ctx, req.UserID)
		if err != nil {
			return err
		}
		if open == nil {
			return apperr.NotFound("No active check-in found for this user")
		}

		if note := s.clean(req.Notes); note != "" {
			open.Notes = joinNotes(open.Notes, note)
		}
		if err := tx.Close(ctx, open); err != nil {
			return err
		}
		rec = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec.setDuration()
	metrics.RecordAttendance("check_out")
	logger.Info("member checked out", "user_id", rec.UserID, "recorded_by", staffID, "duration", rec.Duration)
	return rec, nil
}

func (s *service) ListForUser(ctx context.Context, userID int, q ListQuery) ([]Record, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		return nil, apperr.Validation("offset must not be negative")
	}
	records, err := s.repo.ListForUser(ctx, userID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("attendance for user %d: %w", userID, err)
	}
	return records, nil
}

func (s *service) clean(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

func joinNotes(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
