package subscription

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gymflow/internal/api"
	"gymflow/internal/apperr"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notification"
	"gymflow/internal/plan"
	"gymflow/internal/user"

	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultPageSize = 10
	mailTimeout     = 5 * time.Second
)

// MembershipMailer sends the membership card once a subscription is confirmed.
type MembershipMailer interface {
	SendMembershipCard(ctx context.Context, to, name, planName string, subscriptionID int, start, end time.Time) error
}

type Service interface {
	RequestSubscription(ctx context.Context, userID int, req CreateRequest) (*Subscription, error)
	Confirm(ctx context.Context, id, staffID int, req ConfirmRequest) (*Subscription, error)
	Reject(ctx context.Context, id, staffID int, req RejectRequest) (*Subscription, error)
	Freeze(ctx context.Context, id, staffID int, req FreezeRequest) (*Subscription, error)
	Unfreeze(ctx context.Context, id, staffID int) (*Subscription, error)
	RequestCancellation(ctx context.Context, id, userID int, req CancelRequest) (*Subscription, error)

	ListMine(ctx context.Context, userID int, includeRejected bool) ([]View, error)
	List(ctx context.Context, f ListFilter) (*Page, error)
	Get(ctx context.Context, id int) (*Detail, error)
	RemindExpiring(ctx context.Context, withinDays int) (int, error)

	// Wait blocks until in-flight membership card deliveries have finished.
	Wait()
}

type service struct {
	repo   Repository
	sink   notification.Sink
	mailer MembershipMailer
	policy *bluemonday.Policy
	now    func() time.Time

	mail sync.WaitGroup
}

func NewService(repo Repository, sink notification.Sink, mailer MembershipMailer) Service {
	return &service{
		repo:   repo,
		sink:   sink,
		mailer: mailer,
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

func (s *service) RequestSubscription(ctx context.Context, userID int, req CreateRequest) (sub *Subscription, err error) {
	defer func() { s.record("create", err) }()

	if req.PaymentMethod != MethodCash && req.PaymentMethod != MethodCard {
		return nil, apperr.Validation("Payment method must be either cash or card")
	}

	var (
		member *user.User
		p      *plan.Plan
	)
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		// The user row lock serializes concurrent requests from one member.
		locked, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		member = locked

		p, err = tx.GetPlan(ctx, req.PlanID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return apperr.InvalidState("This subscription plan is no longer available")
		}

		open, err := tx.HasOpen(ctx, userID)
		if err != nil {
			return err
		}
		if open {
			return apperr.Conflict("You already have an active or pending subscription")
		}

		sub = &Subscription{
			UserID:             userID,
			PlanID:             p.ID,
			PaymentMethod:      req.PaymentMethod,
			PaymentStatus:      PaymentPending,
			ConfirmationStatus: ConfirmationPending,
			Amount:             p.Price,
			Notes:              s.clean(req.Notes),
		}
		if err := tx.Create(ctx, sub); err != nil {
			return err
		}

		if err := tx.SetMembershipStatus(ctx, userID, user.StatusPendingSubscription, causedBy(sub.ID, "requested")); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionCreated,
			PerformedBy:    userID,
			NewStatus:      strPtr(ConfirmationPending),
			Notes:          strPtr(fmt.Sprintf("User selected %s plan", p.Name)),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription requested", "subscription_id", sub.ID, "user_id", userID, "plan_id", p.ID, "membership_status", user.StatusPendingSubscription, "action", "create")

	s.sink.Notify(userID,
		"Subscription Request Submitted",
		fmt.Sprintf("Your subscription request for %s has been submitted and is pending approval. We will notify you once an employee reviews your request.", p.Name),
		notification.CategorySubscription,
	)
	s.sink.NotifyStaff(
		"New Subscription Request",
		fmt.Sprintf("%s (%s) requested the %s plan (%s, %s). Subscription #%d awaits confirmation.",
			member.Name, member.Email, p.Name, p.Price, req.PaymentMethod, sub.ID),
		notification.CategorySubscription,
	)

	return sub, nil
}

func (s *service) Confirm(ctx context.Context, id, staffID int, req ConfirmRequest) (sub *Subscription, err error) {
	defer func() { s.record("confirm", err) }()

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = PaymentPaid
	}
	requestedStart, err := parseDate(req.StartDate)
	if err != nil {
		return nil, apperr.Validation("Start date must be a valid date (YYYY-MM-DD)")
	}

	var (
		member *user.User
		p      *plan.Plan
	)
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		sub = locked
		if sub.ConfirmationStatus != ConfirmationPending {
			return apperr.InvalidState("Cannot confirm subscription with status: %s", sub.ConfirmationStatus)
		}

		p, err = tx.GetPlan(ctx, sub.PlanID)
		if err != nil {
			return err
		}

		start := truncateDay(s.now())
		if requestedStart != nil {
			start = *requestedStart
		}
		end := addMonths(start, p.DurationMonths)

		notes := s.clean(req.Notes)
		sub.ConfirmationStatus = ConfirmationConfirmed
		sub.PaymentStatus = paymentStatus
		sub.ConfirmedBy = &staffID
		sub.StartDate = &start
		sub.EndDate = &end
		if notes != "" {
			sub.Notes = appendNote(sub.Notes, "CONFIRMED", notes)
		}
		if err := tx.Update(ctx, sub); err != nil {
			return err
		}

		if err := tx.SetMembershipStatus(ctx, sub.UserID, user.StatusActive, causedBy(sub.ID, "confirmed")); err != nil {
			return err
		}

		if member, err = tx.LockUser(ctx, sub.UserID); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionConfirmed,
			PerformedBy:    staffID,
			OldStatus:      strPtr(ConfirmationPending),
			NewStatus:      strPtr(ConfirmationConfirmed),
			Notes:          strPtr(orDefault(notes, "Subscription confirmed by employee")),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription confirmed", "subscription_id", sub.ID, "user_id", sub.UserID, "staff_id", staffID, "membership_status", user.StatusActive, "action", "confirm")

	s.mail.Add(1)
	go func() {
		defer s.mail.Done()
		s.sendMembershipCard(member, p, sub)
	}()
	s.sink.Notify(sub.UserID,
		"Subscription Confirmed",
		fmt.Sprintf("Your %s subscription has been confirmed and is active from %s until %s.",
			p.Name, sub.StartDate.Format(dateLayout), sub.EndDate.Format(dateLayout)),
		notification.CategorySubscription,
	)

	return sub, nil
}

func (s *service) Reject(ctx context.Context, id, staffID int, req RejectRequest) (sub *Subscription, err error) {
	defer func() { s.record("reject", err) }()

	reason := s.clean(req.Reason)
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		sub = locked
		if sub.ConfirmationStatus != ConfirmationPending {
			return apperr.InvalidState("Cannot reject subscription with status: %s", sub.ConfirmationStatus)
		}

		sub.ConfirmationStatus = ConfirmationRejected
		sub.ConfirmedBy = &staffID
		if reason != "" {
			sub.Notes = appendNote(sub.Notes, "REJECTED", reason)
		}
		if err := tx.Update(ctx, sub); err != nil {
			return err
		}

		// The member may submit a new request.
		if err := tx.SetMembershipStatus(ctx, sub.UserID, user.StatusPendingSubscription, causedBy(sub.ID, "rejected")); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionRejected,
			PerformedBy:    staffID,
			OldStatus:      strPtr(ConfirmationPending),
			NewStatus:      strPtr(ConfirmationRejected),
			Notes:          strPtr(orDefault(reason, "Subscription rejected by employee")),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription rejected", "subscription_id", sub.ID, "user_id", sub.UserID, "staff_id", staffID, "membership_status", user.StatusPendingSubscription, "action", "reject")

	s.sink.Notify(sub.UserID,
		"Subscription Request Rejected",
		"Your subscription request has been rejected. Reason: "+
			orDefault(reason, "No specific reason provided. Please contact support for details.")+
			" You can submit a new subscription request at any time.",
		notification.CategorySubscription,
	)

	return sub, nil
}

func (s *service) Freeze(ctx context.Context, id, staffID int, req FreezeRequest) (sub *Subscription, err error) {
	defer func() { s.record("freeze", err) }()

	until, err := parseDate(req.FrozenUntil)
	if err != nil {
		return nil, apperr.Validation("Frozen until date must be a valid date (YYYY-MM-DD)")
	}
	if until != nil && until.Before(truncateDay(s.now())) {
		return nil, apperr.Validation("Frozen until date cannot be in the past")
	}
	reason := s.clean(req.FrozenReason)

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		sub = locked
		if sub.ConfirmationStatus != ConfirmationConfirmed {
			return apperr.InvalidState("Can only freeze confirmed subscriptions")
		}

		sub.FrozenUntil = until
		sub.FrozenReason = strPtr(orDefault(reason, "Subscription frozen by employee"))
		if err := tx.Update(ctx, sub); err != nil {
			return err
		}

		if err := tx.SetMembershipStatus(ctx, sub.UserID, user.StatusFrozen, causedBy(sub.ID, "frozen")); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionFrozen,
			PerformedBy:    staffID,
			OldStatus:      strPtr(ConfirmationConfirmed),
			NewStatus:      strPtr(labelFrozen),
			Notes:          strPtr(orDefault(reason, "Subscription frozen")),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription frozen", "subscription_id", sub.ID, "user_id", sub.UserID, "staff_id", staffID, "membership_status", user.StatusFrozen, "action", "freeze")

	untilText := "until further notice"
	if until != nil {
		untilText = "until " + until.Format(dateLayout)
	}
	s.sink.Notify(sub.UserID,
		"Subscription Temporarily Frozen",
		fmt.Sprintf("Your subscription has been frozen %s. Reason: %s", untilText, *sub.FrozenReason),
		notification.CategorySubscription,
	)

	return sub, nil
}

func (s *service) Unfreeze(ctx context.Context, id, staffID int) (sub *Subscription, err error) {
	defer func() { s.record("unfreeze", err) }()

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		sub = locked
		if !sub.IsFrozen() {
			return apperr.InvalidState("Subscription is not frozen")
		}

		sub.FrozenUntil = nil
		sub.FrozenReason = nil
		if err := tx.Update(ctx, sub); err != nil {
			return err
		}

		if err := tx.SetMembershipStatus(ctx, sub.UserID, user.StatusActive, causedBy(sub.ID, "unfrozen")); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionUnfrozen,
			PerformedBy:    staffID,
			OldStatus:      strPtr(labelFrozen),
			NewStatus:      strPtr(sub.ConfirmationStatus),
			Notes:          strPtr("Subscription unfrozen by employee"),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription unfrozen", "subscription_id", sub.ID, "user_id", sub.UserID, "staff_id", staffID, "membership_status", user.StatusActive, "action", "unfreeze")

	s.sink.Notify(sub.UserID,
		"Subscription Reactivated",
		"Your subscription freeze has been lifted and your membership is active again. Welcome back!",
		notification.CategorySubscription,
	)

	return sub, nil
}

// RequestCancellation records the member's request. Staff act on it
// separately; the confirmation status does not change.
func (s *service) RequestCancellation(ctx context.Context, id, userID int, req CancelRequest) (sub *Subscription, err error) {
	defer func() { s.record("cancel_request", err) }()

	reason := orDefault(s.clean(req.Reason), "User requested cancellation")
	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		locked, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		sub = locked
		if sub.UserID != userID {
			return apperr.Permission("You can only cancel your own subscription")
		}
		if sub.ConfirmationStatus != ConfirmationConfirmed {
			return apperr.InvalidState("Can only cancel confirmed subscriptions")
		}

		stamped := fmt.Sprintf("%s (%s)", reason, s.now().UTC().Format(time.RFC3339))
		sub.Notes = appendNote(sub.Notes, "CANCELLATION REQUESTED", stamped)
		if err := tx.Update(ctx, sub); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, &AuditEntry{
			SubscriptionID: sub.ID,
			Action:         ActionModified,
			PerformedBy:    userID,
			OldStatus:      strPtr(ConfirmationConfirmed),
			NewStatus:      strPtr(labelCancellationRequested),
			Notes:          strPtr(reason),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("subscription cancellation requested", "subscription_id", sub.ID, "user_id", userID, "action", "cancel_request")

	s.sink.Notify(userID,
		"Cancellation Request Received",
		"We have received your request to cancel your subscription. An employee will review it and contact you soon.",
		notification.CategorySubscription,
	)
	s.sink.NotifyStaff(
		"Subscription Cancellation Request",
		fmt.Sprintf("Subscription #%d: the member requested cancellation. Reason: %s", sub.ID, reason),
		notification.CategorySubscription,
	)

	return sub, nil
}

func (s *service) ListMine(ctx context.Context, userID int, includeRejected bool) ([]View, error) {
	return s.repo.ListByUser(ctx, userID, includeRejected)
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

	return &Page{
		Subscriptions: list,
		Pagination:    api.NewPagination(f.Page, f.Limit, total),
	}, nil
}

func (s *service) Get(ctx context.Context, id int) (*Detail, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	audit, err := s.repo.ListAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{View: *v, Audit: audit}, nil
}

// RemindExpiring notifies owners of confirmed subscriptions ending within
// withinDays. It never changes subscription state.
func (s *service) RemindExpiring(ctx context.Context, withinDays int) (int, error) {
	today := truncateDay(s.now())
	expiring, err := s.repo.ListExpiring(ctx, today, today.AddDate(0, 0, withinDays))
	if err != nil {
		return 0, err
	}

	for _, v := range expiring {
		days := int(v.EndDate.Sub(today).Hours() / 24)
		s.sink.Notify(v.UserID,
			"Membership Expiring Soon",
			fmt.Sprintf("Your %s membership ends on %s (%s). Choose a new plan to keep training without a break.",
				v.PlanName, v.EndDate.Format(dateLayout), daysLeft(days)),
			notification.CategorySubscription,
		)
	}

	logger.Info("expiry reminders queued", "count", len(expiring), "within_days", withinDays)
	return len(expiring), nil
}

func (s *service) Wait() {
	s.mail.Wait()
}

func (s *service) sendMembershipCard(member *user.User, p *plan.Plan, sub *Subscription) {
	if s.mailer == nil || member == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()

	err := s.mailer.SendMembershipCard(ctx, member.Email, member.Name, p.Name, sub.ID, *sub.StartDate, *sub.EndDate)
	if err != nil {
		logger.Error("membership email failed", "subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
	}
}

func (s *service) record(action string, err error) {
	metrics.RecordTransition(action, apperr.Label(err))
}

func (s *service) clean(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

func appendNote(notes, tag, text string) string {
	return strings.TrimSpace(fmt.Sprintf("%s\n[%s] %s", notes, tag, text))
}

func causedBy(subscriptionID int, event string) string {
	return fmt.Sprintf("subscription %d %s", subscriptionID, event)
}

func daysLeft(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "in 1 day"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func strPtr(s string) *string {
	return &s
}
