package maintenance

import (
	"fmt"
	"math"
	"time"

	"github.com/dukex/flightline/pkg/models"
	"github.com/robfig/cron/v3"
)

// Interval is how often a maintenance type falls due. Calendar types use a
// 5-field cron expression; hourly types use a flying-hours period.
type Interval struct {
	Type           models.MaintenanceType `json:"type"`
	CronExpression string                 `json:"cron_expression,omitempty"`
	FlyingHours    float64                `json:"flying_hours,omitempty"`
}

// Calendar inspections fall due at the start of their period.
var intervals = map[models.MaintenanceType]Interval{
	models.Maintenance100Hourly: {Type: models.Maintenance100Hourly, FlyingHours: 100},
	models.Maintenance200Hourly: {Type: models.Maintenance200Hourly, FlyingHours: 200},
	models.MaintenanceWeekly:    {Type: models.MaintenanceWeekly, CronExpression: "0 0 * * 1"},
	models.Maintenance3Monthly:  {Type: models.Maintenance3Monthly, CronExpression: "0 0 1 1,4,7,10 *"},
	models.Maintenance6Monthly:  {Type: models.Maintenance6Monthly, CronExpression: "0 0 1 1,7 *"},
	models.Maintenance12Monthly: {Type: models.Maintenance12Monthly, CronExpression: "0 0 1 1 *"},
}

// Types lists every maintenance type in display order.
var Types = []models.MaintenanceType{
	models.Maintenance100Hourly,
	models.Maintenance200Hourly,
	models.MaintenanceWeekly,
	models.Maintenance3Monthly,
	models.Maintenance6Monthly,
	models.Maintenance12Monthly,
}

// IntervalOf returns the interval of t.
func IntervalOf(t models.MaintenanceType) (Interval, bool) {
	i, ok := intervals[t]

	return i, ok
}

// Due is when a maintenance type is next due for one aircraft.
type Due struct {
	Type           models.MaintenanceType `json:"type"`
	LastDoneAt     *time.Time             `json:"last_done_at,omitempty"`
	DueAt          *time.Time             `json:"due_at,omitempty"`
	DueAtHours     *float64               `json:"due_at_hours,omitempty"`
	RemainingHours *float64               `json:"remaining_hours,omitempty"`
	Overdue        bool                   `json:"overdue"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextDue computes the next due point of interval. lastDone is the ATO signature
// time of the last completed card of that type, or nil.
func NextDue(interval Interval, aircraft *models.Aircraft, lastDone *time.Time, now time.Time) (Due, error) {
	due := Due{Type: interval.Type, LastDoneAt: lastDone}

	if interval.FlyingHours > 0 {
		hours := aircraft.TotalFlyingHours
		at := (math.Floor(hours/interval.FlyingHours) + 1) * interval.FlyingHours
		remaining := at - hours

		due.DueAtHours = &at
		due.RemainingHours = &remaining

		return due, nil
	}

	schedule, err := parser.Parse(interval.CronExpression)
	if err != nil {
		return Due{}, fmt.Errorf("failed to parse schedule of %s: %w", interval.Type, err)
	}

	from := now
	if lastDone != nil {
		from = *lastDone
	}

	at := schedule.Next(from)
	due.DueAt = &at
	due.Overdue = !at.After(now)

	return due, nil
}
