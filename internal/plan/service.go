package plan

import (
	"context"
	"strings"

	"gymflow/internal/apperr"
	"gymflow/internal/logger"
)

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetPlan(ctx context.Context, id int) (*Plan, error)
	Update(ctx context.Context, id int, req UpdatePlanRequest) (*Plan, error)
	ToggleActive(ctx context.Context, id int) (*Plan, error)
	Delete(ctx context.Context, id int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	p := &Plan{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		DurationMonths: req.DurationMonths,
		Price:          req.Price,
		Features:       cleanFeatures(req.Features),
		IsActive:       true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("subscription plan created", "plan_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	return s.repo.List(ctx, activeOnly)
}

// GetPlan returns the plan or a NotFound error.
func (s *service) GetPlan(ctx context.Context, id int) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id int, req UpdatePlanRequest) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.DurationMonths != nil {
		p.DurationMonths = *req.DurationMonths
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Features != nil {
		p.Features = cleanFeatures(req.Features)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("subscription plan updated", "plan_id", p.ID)
	return p, nil
}

func (s *service) ToggleActive(ctx context.Context, id int) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.IsActive = !p.IsActive
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("subscription plan toggled", "plan_id", p.ID, "is_active", p.IsActive)
	return p, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	open, err := s.repo.DeleteUnreferenced(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperr.Validation("Cannot delete plan with %d active subscription(s). Deactivate the plan instead.", open)
	}

	logger.Info("subscription plan deleted", "plan_id", id)
	return nil
}

func validate(p *Plan) error {
	if p.Name == "" {
		return apperr.Validation("Plan name is required")
	}
	if p.DurationMonths < 1 || p.DurationMonths > 120 {
		return apperr.Validation("Duration must be between 1 and 120 months")
	}
	if p.Price < 0 {
		return apperr.Validation("Price must be a positive number")
	}
	return nil
}

func cleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
