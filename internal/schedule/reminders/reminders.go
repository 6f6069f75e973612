// Package reminders turns the notification settings into deadline reminders
// for unfinished tasks, evaluated on a cron schedule.
package reminders

import (
	"math"
	"sort"
	"time"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

type Kind string

const (
	KindThreeDaysBefore Kind = "three-days-before"
	KindOneDayBefore    Kind = "one-day-before"
	KindOnDeadline      Kind = "on-deadline"
)

// Reminder is one task whose deadline hits a notification threshold today.
type Reminder struct {
	ProjectID string    `json:"projectId"`
	TaskID    string    `json:"taskId"`
	Title     string    `json:"title"`
	Kind      Kind      `json:"kind"`
	Deadline  time.Time `json:"deadline"`
}

// Due returns the reminders firing on the calendar day of now. Days are
// counted in now's location; finished tasks never remind.
func Due(p *domain.Project, n domain.NotificationSettings, now time.Time) []Reminder {
	if p == nil || !n.Enabled {
		return nil
	}

	today := day(now, now.Location())
	var out []Reminder
	for _, t := range p.Tasks {
		if t.Status == domain.StatusDone {
			continue
		}
		var kind Kind
		switch int(math.Round(day(t.Deadline, now.Location()).Sub(today).Hours() / 24)) {
		case 3:
			if !n.ThreeDaysBefore {
				continue
			}
			kind = KindThreeDaysBefore
		case 1:
			if !n.OneDayBefore {
				continue
			}
			kind = KindOneDayBefore
		case 0:
			if !n.OnDeadline {
				continue
			}
			kind = KindOnDeadline
		default:
			continue
		}
		out = append(out, Reminder{
			ProjectID: p.ID,
			TaskID:    t.ID,
			Title:     t.Title,
			Kind:      kind,
			Deadline:  t.Deadline,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out
}

func day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
