package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymflow/internal/api"
	"gymflow/internal/apperr"
	"gymflow/internal/auth"
	"gymflow/internal/logger"
)

const defaultPageSize = 20

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
	ListActiveStaff(ctx context.Context) ([]Contact, error)

	List(ctx context.Context, f ListFilter) (*Page, error)
	// SetStatus is an admin override of a member's status outside the
	// subscription lifecycle.
	SetStatus(ctx context.Context, adminID, id int, req StatusRequest) (*User, error)
}

type service struct {
	repo   Repository
	tokens *auth.Issuer
}

func NewService(repo Repository, tokens *auth.Issuer) Service {
	return &service{
		repo:   repo,
		tokens: tokens,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", apperr.Conflict("Email already registered")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	u := &User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        req.Phone,
		Role:         auth.RoleMember,
		Status:       StatusPendingSubscription,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", "", err
	}

	pair, err := s.tokens.IssuePair(identity(u))
	if err != nil {
		return nil, "", "", err
	}

	logger.Info("user registered", "user_id", u.ID)
	return u, pair.Access, pair.Refresh, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(identity(u))
	if err != nil {
		return nil, "", "", err
	}

	return u, pair.Access, pair.Refresh, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	// Re-read so a role change since login is reflected in the new token.
	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	accessToken, err := s.tokens.Issue(identity(u), auth.KindAccess)
	if err != nil {
		return "", nil, err
	}

	return accessToken, u, nil
}

func (s *service) ListActiveStaff(ctx context.Context) ([]Contact, error) {
	return s.repo.ListActiveStaff(ctx)
}

func (s *service) List(ctx context.Context, f ListFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	f.Search = strings.TrimSpace(f.Search)

	users, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Users: users, Pagination: api.NewPagination(f.Page, f.Limit, total)}, nil
}

func (s *service) SetStatus(ctx context.Context, adminID, id int, req StatusRequest) (*User, error) {
	if id == adminID {
		return nil, apperr.Validation("You cannot change your own status")
	}

	causedBy := fmt.Sprintf("admin %d override", adminID)
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		causedBy += ": " + reason
	}

	before, err := s.repo.OverrideStatus(ctx, id, req.Status, causedBy)
	if err != nil {
		return nil, err
	}

	logger.Info("membership status overridden",
		"user_id", id,
		"admin_id", adminID,
		"old_status", before.Status,
		"membership_status", req.Status,
		"caused_by", causedBy,
	)

	after := *before
	after.Status = req.Status
	return &after, nil
}

func identity(u *User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}
