package subscription

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/plan"
	"gymflow/internal/user"
)

type memState struct {
	users     map[int]user.User
	plans     map[int]plan.Plan
	subs      map[int]Subscription
	audit     []AuditEntry
	nextSub   int
	nextAudit int
}

func (st memState) clone() memState {
	out := memState{
		users:     make(map[int]user.User, len(st.users)),
		plans:     make(map[int]plan.Plan, len(st.plans)),
		subs:      make(map[int]Subscription, len(st.subs)),
		audit:     append([]AuditEntry(nil), st.audit...),
		nextSub:   st.nextSub,
		nextAudit: st.nextAudit,
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.plans {
		out.plans[k] = v
	}
	for k, v := range st.subs {
		out.subs[k] = v
	}
	return out
}

// memRepo serializes transactions on one mutex and restores the previous
// state when fn fails, like a database rollback.
type memRepo struct {
	mu        sync.Mutex
	st        memState
	failAudit bool
}

func newMemRepo() *memRepo {
	return &memRepo{st: memState{
		users: map[int]user.User{},
		plans: map[int]plan.Plan{},
		subs:  map[int]Subscription{},
	}}
}

func (r *memRepo) addUser(u user.User) {
	r.st.users[u.ID] = u
}

func (r *memRepo) addPlan(p plan.Plan) {
	r.st.plans[p.ID] = p
}

func (r *memRepo) sub(id int) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.subs[id]
}

func (r *memRepo) userStatus(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.users[id].Status
}

func (r *memRepo) auditFor(id int) []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AuditEntry
	for _, e := range r.st.audit {
		if e.SubscriptionID == id {
			out = append(out, e)
		}
	}
	return out
}

func (r *memRepo) openCount(userID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.st.subs {
		if s.UserID == userID && (s.ConfirmationStatus == ConfirmationPending || s.ConfirmationStatus == ConfirmationConfirmed) {
			n++
		}
	}
	return n
}

func (r *memRepo) WithTx(_ context.Context, fn func(tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := r.st.clone()
	if err := fn(&memTx{r: r}); err != nil {
		r.st = backup
		return err
	}
	return nil
}

func (r *memRepo) view(s Subscription) View {
	p := r.st.plans[s.PlanID]
	u := r.st.users[s.UserID]
	return View{Subscription: s, PlanName: p.Name, DurationMonths: p.DurationMonths, UserName: u.Name, UserEmail: u.Email}
}

func (r *memRepo) GetByID(_ context.Context, id int) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.st.subs[id]
	if !ok {
		return nil, apperr.NotFound("Subscription not found")
	}
	v := r.view(s)
	return &v, nil
}

func (r *memRepo) ListByUser(_ context.Context, userID int, includeRejected bool) ([]View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []View{}
	for _, s := range r.sorted() {
		if s.UserID == userID && (includeRejected || s.ConfirmationStatus != ConfirmationRejected) {
			out = append(out, r.view(s))
		}
	}
	return out, nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]View, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []View
	for _, s := range r.sorted() {
		if f.ConfirmationStatus != "" && s.ConfirmationStatus != f.ConfirmationStatus {
			continue
		}
		all = append(all, r.view(s))
	}
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *memRepo) ListAudit(_ context.Context, id int) ([]AuditEntry, error) {
	return r.auditFor(id), nil
}

func (r *memRepo) ListExpiring(_ context.Context, from, to time.Time) ([]View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []View
	for _, s := range r.sorted() {
		if s.ConfirmationStatus != ConfirmationConfirmed || s.IsFrozen() || s.EndDate == nil {
			continue
		}
		if !s.EndDate.Before(from) && !s.EndDate.After(to) {
			out = append(out, r.view(s))
		}
	}
	return out, nil
}

func (r *memRepo) sorted() []Subscription {
	out := make([]Subscription, 0, len(r.st.subs))
	for _, s := range r.st.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct {
	r *memRepo
}

func (t *memTx) LockUser(_ context.Context, id int) (*user.User, error) {
	u, ok := t.r.st.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (t *memTx) GetPlan(_ context.Context, id int) (*plan.Plan, error) {
	p, ok := t.r.st.plans[id]
	if !ok {
		return nil, apperr.NotFound("Subscription plan not found")
	}
	return &p, nil
}

func (t *memTx) HasOpen(_ context.Context, userID int) (bool, error) {
	for _, s := range t.r.st.subs {
		if s.UserID == userID && (s.ConfirmationStatus == ConfirmationPending || s.ConfirmationStatus == ConfirmationConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) LockByID(_ context.Context, id int) (*Subscription, error) {
	s, ok := t.r.st.subs[id]
	if !ok {
		return nil, apperr.NotFound("Subscription not found")
	}
	return &s, nil
}

func (t *memTx) Create(ctx context.Context, s *Subscription) error {
	// stands in for the partial unique index
	if open, _ := t.HasOpen(ctx, s.UserID); open {
		return apperr.Conflict("You already have an active or pending subscription")
	}
	t.r.st.nextSub++
	s.ID = t.r.st.nextSub
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	t.r.st.subs[s.ID] = *s
	return nil
}

func (t *memTx) Update(_ context.Context, s *Subscription) error {
	if _, ok := t.r.st.subs[s.ID]; !ok {
		return apperr.NotFound("Subscription not found")
	}
	s.UpdatedAt = time.Now()
	t.r.st.subs[s.ID] = *s
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, e *AuditEntry) error {
	if t.r.failAudit {
		return errors.New("audit insert failed")
	}
	t.r.st.nextAudit++
	e.ID = t.r.st.nextAudit
	e.CreatedAt = time.Now()
	t.r.st.audit = append(t.r.st.audit, *e)
	return nil
}

func (t *memTx) SetMembershipStatus(_ context.Context, userID int, status, _ string) error {
	u, ok := t.r.st.users[userID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	u.Status = status
	t.r.st.users[userID] = u
	return nil
}

type sinkCall struct {
	userID int
	staff  bool
	title  string
}

type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (f *fakeSink) Notify(userID int, title, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sinkCall{userID: userID, title: title})
}

func (f *fakeSink) NotifyMany(userIDs []int, title, message, category string) {
	for _, id := range userIDs {
		f.Notify(id, title, message, category)
	}
}

func (f *fakeSink) NotifyStaff(title, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sinkCall{staff: true, title: title})
}

func (f *fakeSink) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.title
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []int
	err  error

	// release, when set, holds every send until it is closed.
	release chan struct{}
}

func (m *fakeMailer) SendMembershipCard(ctx context.Context, _, _, _ string, subscriptionID int, _, _ time.Time) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, subscriptionID)
	return nil
}
