package class

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/user"
)

type memState struct {
	classes map[int]Class
	regs    map[int][]Registrant
	nextID  int
}

func (st memState) clone() memState {
	out := memState{
		classes: make(map[int]Class, len(st.classes)),
		regs:    make(map[int][]Registrant, len(st.regs)),
		nextID:  st.nextID,
	}
	for k, v := range st.classes {
		out.classes[k] = v
	}
	for k, v := range st.regs {
		out.regs[k] = append([]Registrant(nil), v...)
	}
	return out
}

// memRepo runs one transaction at a time and restores the previous state
// when fn fails.
type memRepo struct {
	mu    sync.Mutex
	st    memState
	users map[int]user.User
}

func newMemRepo() *memRepo {
	return &memRepo{
		st:    memState{classes: map[int]Class{}, regs: map[int][]Registrant{}},
		users: map[int]user.User{},
	}
}

func (r *memRepo) addUser(u user.User) {
	r.users[u.ID] = u
}

func (r *memRepo) addClass(c Class) int {
	r.st.nextID++
	c.ID = r.st.nextID
	if c.Status == "" {
		c.Status = StatusAvailable
	}
	r.st.classes[c.ID] = c
	return c.ID
}

func (r *memRepo) load(id int) (*Class, bool) {
	c, ok := r.st.classes[id]
	if !ok {
		return nil, false
	}
	c.setRegistrants(append([]Registrant(nil), r.st.regs[id]...))
	return &c, true
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

func (r *memRepo) GetByID(_ context.Context, id int) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.load(id)
	if !ok {
		return nil, apperr.NotFound("Class not found")
	}
	return c, nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Class, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Class
	for _, id := range r.ids() {
		c, _ := r.load(id)
		if f.IsActive != nil && c.IsActive != *f.IsActive {
			continue
		}
		if f.CoachID > 0 && (c.CoachID == nil || *c.CoachID != f.CoachID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Description), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, *c)
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

func (r *memRepo) ListJoined(_ context.Context, userID int) ([]Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Class{}
	for _, id := range r.ids() {
		c, _ := r.load(id)
		if c.IsRegistered(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.classes[id]; !ok {
		return apperr.NotFound("Class not found")
	}
	delete(r.st.classes, id)
	delete(r.st.regs, id)
	return nil
}

func (r *memRepo) ids() []int {
	ids := make([]int, 0, len(r.st.classes))
	for id := range r.st.classes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r *memRepo) stored(id int) Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, _ := r.load(id)
	return *c
}

type memTx struct {
	r *memRepo
}

func (t *memTx) Lock(_ context.Context, id int) (*Class, error) {
	c, ok := t.r.load(id)
	if !ok {
		return nil, apperr.NotFound("Class not found")
	}
	return c, nil
}

func (t *memTx) GetUser(_ context.Context, id int) (*user.User, error) {
	u, ok := t.r.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (t *memTx) Insert(_ context.Context, c *Class) error {
	t.r.st.nextID++
	c.ID = t.r.st.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	t.r.st.classes[c.ID] = *c
	return nil
}

func (t *memTx) Update(_ context.Context, c *Class) error {
	if _, ok := t.r.st.classes[c.ID]; !ok {
		return apperr.NotFound("Class not found")
	}
	c.UpdatedAt = time.Now()
	stored := *c
	stored.RegisteredUsers = nil
	t.r.st.classes[c.ID] = stored
	return nil
}

func (t *memTx) AddRegistrant(_ context.Context, reg *Registrant) error {
	for _, existing := range t.r.st.regs[reg.ClassID] {
		if existing.UserID == reg.UserID {
			return apperr.Conflict("You are already registered for this class")
		}
	}
	reg.RegisteredAt = time.Now()
	t.r.st.regs[reg.ClassID] = append(t.r.st.regs[reg.ClassID], *reg)
	return nil
}

func (t *memTx) RemoveRegistrant(_ context.Context, classID, userID int) (bool, error) {
	regs := t.r.st.regs[classID]
	for i, reg := range regs {
		if reg.UserID == userID {
			t.r.st.regs[classID] = append(regs[:i:i], regs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
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
