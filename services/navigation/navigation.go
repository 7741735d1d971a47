// Package navigation decides where a signed-in user lands and when.
package navigation

import (
	"encoding/json"
	"sync"
	"time"

	"educonnect/models"
)

const (
	TeacherDashboard = "/dashboard/teacher"
	StudentDashboard = "/dashboard/student"
)

// DashboardFor is binary: only the exact teacher role gets the teacher dashboard.
func DashboardFor(role models.Role) string {
	if role == models.RoleTeacher {
		return TeacherDashboard
	}
	return StudentDashboard
}

// Plan is a navigation to Target after Delay.
type Plan struct {
	Target string        `json:"target"`
	Delay  time.Duration `json:"-"`
}

// DelayMs is the delay as sent to clients.
func (p Plan) DelayMs() int64 { return p.Delay.Milliseconds() }

func (p Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target  string `json:"target"`
		DelayMs int64  `json:"delayMs"`
	}{p.Target, p.DelayMs()})
}

// Navigator performs a navigation.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// Handle refers to a scheduled navigation.
type Handle interface {
	// Cancel stops the navigation if it has not run yet and reports whether it did so.
	Cancel() bool
}

// Scheduler schedules navigations.
type Scheduler interface {
	Schedule(plan Plan, nav Navigator) Handle
}

// TimerScheduler runs navigations in-process after their delay.
// A zero delay navigates synchronously.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(plan Plan, nav Navigator) Handle {
	if plan.Delay <= 0 {
		nav.Navigate(plan.Target)
		return doneHandle{}
	}
	h := &timerHandle{}
	h.timer = time.AfterFunc(plan.Delay, func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()
		nav.Navigate(plan.Target)
	})
	return h
}

type timerHandle struct {
	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	cancelled bool
}

func (h *timerHandle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired || h.cancelled {
		return false
	}
	h.cancelled = true
	h.timer.Stop()
	return true
}

type doneHandle struct{}

func (doneHandle) Cancel() bool { return false }

// ClientScheduler never navigates server-side; the plan travels back to the
// client in the response, which performs it.
type ClientScheduler struct{}

func (ClientScheduler) Schedule(Plan, Navigator) Handle { return doneHandle{} }
