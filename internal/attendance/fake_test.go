package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/user"
)

// memRepo serializes transactions and drops writes of a failed one.
type memRepo struct {
	mu      sync.Mutex
	users   map[int]user.User
	records []Record
	now     time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		users: map[int]user.User{},
		now:   time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) addUser(id int, name, status string) {
	r.users[id] = user.User{ID: id, Name: name, Status: status, Role: "member"}
}

func (r *memRepo) advance(d time.Duration) {
	r.now = r.now.Add(d)
}

func (r *memRepo) openCount(userID int) int {
	n := 0
	for _, rec := range r.records {
		if rec.UserID == userID && rec.IsOpen() {
			n++
		}
	}
	return n
}

func (r *memRepo) WithTx(_ context.Context, fn func(tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := append([]Record(nil), r.records...)
	if err := fn(&memTx{r: r}); err != nil {
		r.records = backup
		return err
	}
	return nil
}

func (r *memRepo) ListForUser(_ context.Context, userID, limit, offset int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Record{}
	for _, rec := range r.records {
		if rec.UserID == userID {
			rec.setDuration()
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckInTime.After(out[j].CheckInTime) })
	if offset >= len(out) {
		return []Record{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTx struct {
	r *memRepo
}

func (t *memTx) LockUser(_ context.Context, userID int) (*user.User, error) {
	u, ok := t.r.users[userID]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (t *memTx) OpenVisit(_ context.Context, userID int) (*Record, error) {
	for _, rec := range t.r.records {
		if rec.UserID == userID && rec.IsOpen() {
			return &rec, nil
		}
	}
	return nil, nil
}

func (t *memTx) Insert(_ context.Context, rec *Record) error {
	if t.r.openCount(rec.UserID) > 0 {
		return apperr.Conflict("User is already checked in")
	}
	rec.ID = len(t.r.records) + 1
	rec.CheckInTime = t.r.now
	rec.CreatedAt = t.r.now
	t.r.records = append(t.r.records, *rec)
	return nil
}

func (t *memTx) Close(_ context.Context, rec *Record) error {
	for i := range t.r.records {
		if t.r.records[i].ID == rec.ID && t.r.records[i].IsOpen() {
			out := t.r.now
			rec.CheckOutTime = &out
			t.r.records[i].CheckOutTime = &out
			t.r.records[i].Notes = rec.Notes
			return nil
		}
	}
	return apperr.NotFound("No active check-in found for this user")
}
