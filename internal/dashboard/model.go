package dashboard

import (
	"time"

	"gymflow/internal/plan"
)

// Today is the front-desk view of the current day.
type Today struct {
	CheckIns             int `db:"check_ins" json:"check_ins"`
	CurrentlyCheckedIn   int `db:"currently_checked_in" json:"currently_checked_in"`
	PendingSubscriptions int `db:"pending_subscriptions" json:"pending_subscriptions"`
}

type Totals struct {
	ActiveStaff         int `db:"active_staff" json:"active_staff"`
	ActiveSubscriptions int `db:"active_subscriptions" json:"active_subscriptions"`
	CoachAssignments    int `db:"coach_assignments" json:"coach_assignments"`
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

type ClassFill struct {
	ID         int     `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Capacity   int     `db:"capacity" json:"capacity"`
	Registered int     `db:"registered" json:"registered"`
	FillRate   float64 `db:"-" json:"fill_rate"`
}

type PlanRevenue struct {
	PlanID        int        `db:"plan_id" json:"plan_id"`
	PlanName      string     `db:"plan_name" json:"plan_name"`
	Subscriptions int        `db:"subscriptions" json:"subscriptions"`
	Revenue       plan.Money `db:"revenue_cents" json:"revenue"`
}

type Revenue struct {
	Period        string        `json:"period"`
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	Total         plan.Money    `json:"total"`
	Subscriptions int           `json:"subscriptions"`
	Average       plan.Money    `json:"average"`
	ByPlan        []PlanRevenue `json:"by_plan"`
}

type Overview struct {
	MembersByStatus map[string]int `json:"members_by_status"`
	Totals          Totals         `json:"totals"`
	Today           Today          `json:"today"`
	Revenue         Revenue        `json:"revenue_this_month"`
	Classes         []ClassFill    `json:"classes"`
}
