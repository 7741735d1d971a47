package workflow

import (
	"context"
	"sync"

	"educonnect/models"
	"educonnect/services/navigation"
	"educonnect/services/session"
	"educonnect/services/validation"
)

// Flow is one client's pass through the auth forms: its state, the banner
// and field errors on display, and any navigation still pending.
type Flow struct {
	c   *Controller
	nav navigation.Navigator

	mu        sync.Mutex
	state     State
	alert     models.Alert
	errors    validation.Errors
	sessionID string
	prefill   *models.ProfilePrefill
	pending   navigation.Handle
	tornDown  bool
}

// NewFlow starts an idle flow. nav receives scheduled navigations; nil discards them.
func (c *Controller) NewFlow(nav navigation.Navigator) *Flow {
	if nav == nil {
		nav = navigation.NavigatorFunc(func(string) {})
	}
	return &Flow{c: c, nav: nav, state: StateIdle}
}

// Resume puts the flow back into profile completion for a stored session.
func (f *Flow) Resume(s *session.Session) {
	if s.State != session.StateProfileIncomplete {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateProfileIncomplete
	f.sessionID = s.ID
	f.prefill = s.Prefill
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Alert() models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alert
}

// FieldErrors returns the messages shown next to invalid fields.
func (f *Flow) FieldErrors() validation.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors
}

func (f *Flow) Prefill() *models.ProfilePrefill {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefill
}

func (f *Flow) DismissAlert() {
	f.mu.Lock()
	f.alert.Dismiss()
	f.mu.Unlock()
}

// Teardown cancels a pending navigation. A submission still in flight
// finishes but no longer navigates. The flow must not be used afterwards.
func (f *Flow) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = true
	if f.pending != nil {
		f.pending.Cancel()
		f.pending = nil
	}
}

func (f *Flow) Login(ctx context.Context, form models.LoginForm) (*Result, error) {
	return f.run(StateSubmitting, canSubmit, func() (*Result, error) {
		return f.c.Login(ctx, form)
	})
}

func (f *Flow) Register(ctx context.Context, form models.RegistrationForm) (*Result, error) {
	return f.run(StateSubmitting, canSubmit, func() (*Result, error) {
		return f.c.Register(ctx, form)
	})
}

func (f *Flow) ProviderLogin(ctx context.Context, cred models.ProviderCredential) (*Result, error) {
	return f.run(StateSubmitting, canSubmit, func() (*Result, error) {
		return f.c.ProviderLogin(ctx, cred)
	})
}

func (f *Flow) CompleteProfile(ctx context.Context, form models.ProfileCompletionForm) (*Result, error) {
	f.mu.Lock()
	sessionID := f.sessionID
	f.mu.Unlock()
	return f.run(StateProfileSubmitting, f.canComplete, func() (*Result, error) {
		return f.c.CompleteProfile(ctx, sessionID, form)
	})
}

// CancelProfileCompletion signs out and returns the flow to idle.
func (f *Flow) CancelProfileCompletion(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	sessionID := f.sessionID
	f.mu.Unlock()
	return f.run(StateProfileSubmitting, f.canComplete, func() (*Result, error) {
		return f.c.CancelProfileCompletion(ctx, sessionID)
	})
}

func canSubmit(s State) bool {
	return s == StateIdle || s == StateFailed
}

// canComplete allows completion from profile_incomplete, and retries after a
// failed save while the pending session is still held.
func (f *Flow) canComplete(s State) bool {
	return s == StateProfileIncomplete || (s == StateFailed && f.sessionID != "")
}

// run moves the flow to busy, performs op without holding the lock, and
// applies its result.
func (f *Flow) run(busy State, allowed func(State) bool, op func() (*Result, error)) (*Result, error) {
	f.mu.Lock()
	if f.state == StateSubmitting || f.state == StateProfileSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if !allowed(f.state) {
		f.mu.Unlock()
		if busy == StateProfileSubmitting {
			return nil, ErrNotAwaitingProfile
		}
		return nil, ErrSubmissionInProgress
	}
	prev := f.state
	f.state = busy
	f.alert = models.Alert{}
	f.errors = nil
	f.mu.Unlock()

	res, err := op()

	f.mu.Lock()
	if err != nil {
		f.state = prev
		f.mu.Unlock()
		return nil, err
	}
	f.apply(res)
	tornDown := f.tornDown
	f.mu.Unlock()

	// Scheduled outside the lock: a zero delay navigates synchronously.
	if res.Redirect != nil && !tornDown {
		h := f.c.Scheduler.Schedule(*res.Redirect, f.nav)
		f.mu.Lock()
		if f.tornDown {
			h.Cancel()
		} else {
			f.pending = h
		}
		f.mu.Unlock()
	}
	return res, nil
}

func (f *Flow) apply(res *Result) {
	f.state = res.State
	f.alert = res.Alert
	f.errors = res.Errors

	switch res.State {
	case StateProfileIncomplete:
		if res.SessionID != "" {
			f.sessionID = res.SessionID
		}
		if res.Prefill != nil {
			f.prefill = res.Prefill
		}
	case StateIdle:
		if res.Err == nil {
			// cancelled completion
			f.sessionID = ""
			f.prefill = nil
		}
	case StateSuccess:
		f.prefill = nil
	}
}
