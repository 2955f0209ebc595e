package attendance

import (
	"fmt"
	"time"
)

// Record is one gym visit. An open visit has no check-out time.
type Record struct {
	ID           int        `db:"id" json:"id"`
	UserID       int        `db:"user_id" json:"user_id"`
	UserName     string     `db:"user_name" json:"user_name"`
	CheckInTime  time.Time  `db:"check_in_time" json:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time" json:"check_out_time"`
	RecordedBy   *int       `db:"recorded_by" json:"recorded_by"`
	Notes        string     `db:"notes" json:"notes"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`

	Duration string `db:"-" json:"duration,omitempty"`
}

func (r *Record) IsOpen() bool {
	return r.CheckOutTime == nil
}

// setDuration renders the visit length as "1h 25m".
func (r *Record) setDuration() {
	if r.CheckOutTime == nil {
		r.Duration = ""
		return
	}
	d := r.CheckOutTime.Sub(r.CheckInTime)
	r.Duration = fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

type CheckInRequest struct {
	UserID int    `json:"user_id" binding:"required,min=1"`
	Notes  string `json:"notes" binding:"max=500"`
}

type CheckOutRequest struct {
	UserID int    `json:"user_id" binding:"required,min=1"`
	Notes  string `json:"notes" binding:"max=500"`
}

type ListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
