package coach

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/user"
)

// memRepo runs one transaction at a time and restores the previous
// assignments when fn fails.
type memRepo struct {
	mu     sync.Mutex
	rows   map[int]Assignment
	users  map[int]user.User
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int]Assignment{}, users: map[int]user.User{}}
}

func (r *memRepo) addUser(u user.User) {
	r.users[u.ID] = u
}

func (r *memRepo) WithTx(_ context.Context, fn func(tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := make(map[int]Assignment, len(r.rows))
	for k, v := range r.rows {
		backup[k] = v
	}
	next := r.nextID
	if err := fn(&memTx{r: r}); err != nil {
		r.rows, r.nextID = backup, next
		return err
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, apperr.NotFound("Coach assignment not found")
	}
	return &a, nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Assignment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := []Assignment{}
	for _, a := range r.sorted() {
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		if f.CoachID > 0 && a.CoachID != f.CoachID {
			continue
		}
		if f.UserID > 0 && a.UserID != f.UserID {
			continue
		}
		all = append(all, a)
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

func (r *memRepo) ActiveFor(_ context.Context, userID int) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.sorted() {
		if a.UserID == userID && a.IsActive {
			return &a, nil
		}
	}
	return nil, apperr.NotFound("Coach assignment not found")
}

func (r *memRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperr.NotFound("Coach assignment not found")
	}
	delete(r.rows, id)
	return nil
}

// sorted orders rows the way the SQL listing does: newest assigned date first.
func (r *memRepo) sorted() []Assignment {
	out := make([]Assignment, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedDate.Equal(out[j].AssignedDate) {
			return out[i].AssignedDate.After(out[j].AssignedDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type memTx struct {
	r *memRepo
}

func (t *memTx) Lock(_ context.Context, id int) (*Assignment, error) {
	a, ok := t.r.rows[id]
	if !ok {
		return nil, apperr.NotFound("Coach assignment not found")
	}
	return &a, nil
}

func (t *memTx) GetUser(_ context.Context, id int) (*user.User, error) {
	u, ok := t.r.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

// checkPair stands in for the partial unique index.
func (t *memTx) checkPair(a *Assignment) error {
	if !a.IsActive {
		return nil
	}
	for _, other := range t.r.rows {
		if other.ID != a.ID && other.IsActive && other.CoachID == a.CoachID && other.UserID == a.UserID {
			return duplicatePair()
		}
	}
	return nil
}

func (t *memTx) Insert(_ context.Context, a *Assignment) error {
	if err := t.checkPair(a); err != nil {
		return err
	}
	t.r.nextID++
	a.ID = t.r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	t.r.rows[a.ID] = *a
	return nil
}

func (t *memTx) Update(_ context.Context, a *Assignment) error {
	if _, ok := t.r.rows[a.ID]; !ok {
		return apperr.NotFound("Coach assignment not found")
	}
	if err := t.checkPair(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	t.r.rows[a.ID] = *a
	return nil
}

type fakeSink struct {
	mu    sync.Mutex
	users []int
	title []string
}

func (f *fakeSink) Notify(userID int, title, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.title = append(f.title, title)
}

func (f *fakeSink) NotifyMany(userIDs []int, title, message, category string) {
	for _, id := range userIDs {
		f.Notify(id, title, message, category)
	}
}

func (f *fakeSink) NotifyStaff(title, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = append(f.title, title)
}
