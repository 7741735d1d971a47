package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	profileRepo "educonnect/database/repository/profile"
	"educonnect/models"
	"educonnect/services/identity"
	"educonnect/services/navigation"
	"educonnect/services/session"
)

type fakeIdentity struct {
	mu       sync.Mutex
	identity *models.Identity
	err      error
	calls    int
	signOuts int
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeIdentity) call() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		f.started <- struct{}{}
		<-f.block
	}
}

func (f *fakeIdentity) SignIn(context.Context, string, string) (*models.Identity, error) {
	f.call()
	if f.err != nil {
		return nil, f.err
	}
	id := *f.identity
	return &id, nil
}

func (f *fakeIdentity) Register(_ context.Context, email, _, displayName string) (*models.Identity, error) {
	f.call()
	if f.err != nil {
		return nil, f.err
	}
	id := *f.identity
	id.Email = email
	id.DisplayName = displayName
	return &id, nil
}

func (f *fakeIdentity) SignInWithProvider(context.Context, models.ProviderCredential) (*models.Identity, error) {
	f.call()
	if f.err != nil {
		return nil, f.err
	}
	id := *f.identity
	return &id, nil
}

func (f *fakeIdentity) SignOut(context.Context, *models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return nil
}

func (f *fakeIdentity) Token(_ context.Context, id *models.Identity) (string, error) {
	return id.IDToken, nil
}

func (f *fakeIdentity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	writeErr error
	upserts  int
	reads    int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]models.UserProfile{}}
}

func (f *fakeProfiles) GetProfile(_ context.Context, uid string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	p, ok := f.profiles[uid]
	if !ok {
		return nil, profileRepo.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, uid string, patch models.ProfilePatch, now time.Time) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.writeErr != nil {
		return nil, errors.Join(profileRepo.ErrStoreWrite, f.writeErr)
	}
	p, ok := f.profiles[uid]
	if !ok {
		p = models.UserProfile{UID: uid, CreatedAt: now}
	}
	patch.Apply(&p)
	p.UpdatedAt = now
	f.profiles[uid] = p
	return &p, nil
}

func (f *fakeProfiles) Ping(context.Context) error { return nil }

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func (m *memoryStore) Save(_ context.Context, s *session.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type recordingScheduler struct {
	mu    sync.Mutex
	plans []navigation.Plan
}

func (r *recordingScheduler) Schedule(plan navigation.Plan, _ navigation.Navigator) navigation.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, plan)
	return navigation.ClientScheduler{}.Schedule(plan, nil)
}

type harness struct {
	c        *Controller
	ident    *fakeIdentity
	profiles *fakeProfiles
	store    *memoryStore
	sched    *recordingScheduler
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newHarness() *harness {
	h := &harness{
		ident:    &fakeIdentity{identity: &models.Identity{UID: "u1", Email: "a@b.com", IDToken: "id-tok"}},
		profiles: newFakeProfiles(),
		store:    &memoryStore{sessions: map[string]session.Session{}},
		sched:    &recordingScheduler{},
	}
	sessions := session.NewManager(h.store, session.Options{Secret: []byte("secret"), TTL: time.Hour})
	h.c = NewController(h.ident, h.profiles, sessions, h.sched, nil)
	h.c.Now = func() time.Time { return fixedNow }
	return h
}

func TestLoginRedirectsStudentAfterDelay(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	flow := h.c.NewFlow(nil)

	res, err := flow.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateSuccess || res.Alert.Message != MsgLoginSuccess || res.Alert.Type != models.AlertSuccess {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Token == "" || h.store.count() != 1 {
		t.Fatal("expected a session to be established")
	}
	if len(h.sched.plans) != 1 {
		t.Fatalf("expected one scheduled navigation, got %d", len(h.sched.plans))
	}
	plan := h.sched.plans[0]
	if plan.Target != navigation.StudentDashboard || plan.Delay != 1500*time.Millisecond {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if flow.State() != StateSuccess {
		t.Fatalf("expected flow in success, got %s", flow.State())
	}
}

func TestLoginTeacherDashboard(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleTeacher}

	res, err := h.c.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect == nil || res.Redirect.Target != navigation.TeacherDashboard {
		t.Fatalf("expected teacher dashboard, got %+v", res.Redirect)
	}
}

func TestLoginValidationBlocksRemoteCalls(t *testing.T) {
	h := newHarness()
	flow := h.c.NewFlow(nil)

	res, err := flow.Login(context.Background(), models.LoginForm{Email: "not-an-email", Password: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ident.callCount() != 0 || h.profiles.reads != 0 {
		t.Fatal("validation failure must not reach the identity service or the store")
	}
	if res.Alert.Message != MsgFixErrors || res.Errors["email"] == "" || res.Errors["password"] == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if flow.State() != StateIdle || !errors.Is(res.Err, ErrValidation) {
		t.Fatalf("expected idle flow, got %s", flow.State())
	}
}

func TestLoginAuthFailure(t *testing.T) {
	h := newHarness()
	h.ident.err = &identity.AuthError{Op: identity.OpSignIn, Kind: identity.KindWrongPassword}

	res, err := h.c.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateFailed || res.Alert.Message != "Incorrect password. Please try again." {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.profiles.reads != 0 {
		t.Fatal("profile must not be read after a failed sign-in")
	}
}

func TestLoginWithoutProfileFails(t *testing.T) {
	h := newHarness()

	res, err := h.c.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateFailed || res.Alert.Message != MsgProfileNotFound {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err, profileRepo.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound cause, got %v", res.Err)
	}
	if h.store.count() != 0 || len(h.sched.plans) != 0 {
		t.Fatal("no session or navigation expected")
	}
}

func validRegistration() models.RegistrationForm {
	return models.RegistrationForm{
		FullName:        " Jane Doe ",
		Email:           "jane@b.com",
		Password:        "Abc123",
		ConfirmPassword: "Abc123",
		Role:            "teacher",
		AgreeToTerms:    true,
	}
}

func TestRegisterWeakPasswordMakesNoNetworkCall(t *testing.T) {
	h := newHarness()
	form := validRegistration()
	form.Password = "password"
	form.ConfirmPassword = "password"

	res, err := h.c.Register(context.Background(), form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ident.callCount() != 0 || h.profiles.upserts != 0 {
		t.Fatal("weak password must be rejected before any remote call")
	}
	if res.Errors["password"] == "" {
		t.Fatalf("expected a password error, got %v", res.Errors)
	}
}

func TestRegisterCreatesProfile(t *testing.T) {
	h := newHarness()

	res, err := h.c.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateSuccess || res.Alert.Message != MsgRegisterSuccess {
		t.Fatalf("unexpected result %+v", res)
	}
	p := h.profiles.profiles["u1"]
	if p.FullName != "Jane Doe" || p.Email != "jane@b.com" || p.Role != models.RoleTeacher {
		t.Fatalf("unexpected stored profile %+v", p)
	}
	if !p.CreatedAt.Equal(fixedNow) || !p.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected fresh timestamps, got %+v", p)
	}
	if res.Redirect == nil || res.Redirect.Target != navigation.TeacherDashboard || res.Redirect.Delay != 2*time.Second {
		t.Fatalf("unexpected redirect %+v", res.Redirect)
	}
	if len(h.sched.plans) != 0 {
		t.Fatal("the controller returns the plan; only a flow schedules it")
	}
}

func TestRegisterStoreFailure(t *testing.T) {
	h := newHarness()
	h.profiles.writeErr = errors.New("unavailable")

	res, err := h.c.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateFailed || res.Alert.Message != MsgProfileSaveFailed {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err, profileRepo.ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite cause, got %v", res.Err)
	}
	if h.store.count() != 0 {
		t.Fatal("no session expected after a failed profile write")
	}
}

func TestProviderLoginWithoutProfileAsksForCompletion(t *testing.T) {
	h := newHarness()
	h.ident.identity = &models.Identity{UID: "g1", Email: "g@b.com", DisplayName: "Gee User", ProviderID: "google.com"}
	flow := h.c.NewFlow(nil)

	res, err := flow.ProviderLogin(context.Background(), models.ProviderCredential{IDToken: "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateProfileIncomplete || res.Alert.Type != models.AlertInfo || res.Alert.Message != MsgCompleteProfile {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Prefill == nil || res.Prefill.Email != "g@b.com" || res.Prefill.FullName != "Gee User" {
		t.Fatalf("unexpected prefill %+v", res.Prefill)
	}
	if res.Redirect != nil || len(h.sched.plans) != 0 {
		t.Fatal("no navigation expected before the profile is completed")
	}
	if flow.State() != StateProfileIncomplete || flow.Prefill() == nil {
		t.Fatalf("expected flow in profile completion, got %s", flow.State())
	}
}

func TestProviderLoginWithProfile(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleTeacher}

	res, err := h.c.ProviderLogin(context.Background(), models.ProviderCredential{IDToken: "tok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateSuccess || res.Redirect.Target != navigation.TeacherDashboard || res.Redirect.Delay != 1500*time.Millisecond {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProviderLoginFailure(t *testing.T) {
	h := newHarness()
	h.ident.err = &identity.AuthError{Op: identity.OpProviderSignIn, Kind: identity.KindPopupFailed}

	res, _ := h.c.ProviderLogin(context.Background(), models.ProviderCredential{})
	if res.State != StateFailed || res.Alert.Message != "Google login failed. Please try again." {
		t.Fatalf("unexpected result %+v", res)
	}
}

func startCompletion(t *testing.T, h *harness) *Flow {
	t.Helper()
	h.ident.identity = &models.Identity{UID: "g1", Email: "g@b.com", DisplayName: "Gee"}
	flow := h.c.NewFlow(nil)
	if _, err := flow.ProviderLogin(context.Background(), models.ProviderCredential{IDToken: "tok"}); err != nil {
		t.Fatalf("provider login: %v", err)
	}
	return flow
}

func TestCompleteProfileNavigatesImmediately(t *testing.T) {
	h := newHarness()
	flow := startCompletion(t, h)

	res, err := flow.CompleteProfile(context.Background(), models.ProfileCompletionForm{
		FullName: "Gee", Email: "g@b.com", Role: "teacher", NIC: "123V", ContactNo: "0771234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateSuccess || res.Redirect == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Redirect.Target != navigation.TeacherDashboard || res.Redirect.Delay != 0 {
		t.Fatalf("expected immediate teacher navigation, got %+v", res.Redirect)
	}
	p := h.profiles.profiles["g1"]
	if p.Role != models.RoleTeacher || p.Batch != "" || p.NIC != "123V" {
		t.Fatalf("unexpected stored profile %+v", p)
	}
	s, err := h.c.Sessions.Get(context.Background(), res.SessionID)
	if err != nil || !s.Active() || s.Role != models.RoleTeacher {
		t.Fatalf("expected active teacher session, got %+v (%v)", s, err)
	}
}

func TestCompleteProfileValidation(t *testing.T) {
	h := newHarness()
	flow := startCompletion(t, h)

	res, err := flow.CompleteProfile(context.Background(), models.ProfileCompletionForm{
		FullName: "Gee", Email: "g@b.com", Role: "student", NIC: "123V", ContactNo: "07x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateProfileIncomplete || h.profiles.upserts != 0 {
		t.Fatalf("expected to stay in completion without a write, got %+v", res)
	}
	for _, field := range []string{"contactNo", "batch", "stream"} {
		if res.Errors[field] == "" {
			t.Errorf("expected an error for %s", field)
		}
	}
	if flow.State() != StateProfileIncomplete {
		t.Fatalf("expected flow still in completion, got %s", flow.State())
	}
}

func TestCompleteProfileRequiresPendingCompletion(t *testing.T) {
	h := newHarness()
	flow := h.c.NewFlow(nil)
	if _, err := flow.CompleteProfile(context.Background(), models.ProfileCompletionForm{}); !errors.Is(err, ErrNotAwaitingProfile) {
		t.Fatalf("expected ErrNotAwaitingProfile from idle, got %v", err)
	}

	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	res, _ := h.c.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if _, err := h.c.CompleteProfile(context.Background(), res.SessionID, models.ProfileCompletionForm{}); !errors.Is(err, ErrNotAwaitingProfile) {
		t.Fatalf("expected ErrNotAwaitingProfile for an active session, got %v", err)
	}
}

func TestCancelProfileCompletion(t *testing.T) {
	h := newHarness()
	flow := startCompletion(t, h)

	res, err := flow.CancelProfileCompletion(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateIdle || flow.State() != StateIdle || flow.Prefill() != nil {
		t.Fatalf("expected idle flow without prefill, got %s", flow.State())
	}
	if h.ident.signOuts != 1 || h.store.count() != 0 {
		t.Fatalf("expected sign-out and cleared session, signOuts=%d sessions=%d", h.ident.signOuts, h.store.count())
	}
}

func TestSecondSubmissionRejectedWhileInFlight(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	h.ident.block = make(chan struct{})
	h.ident.started = make(chan struct{}, 1)

	form := models.LoginForm{Email: "a@b.com", Password: "Abc123"}
	done := make(chan error, 1)
	go func() {
		_, err := h.c.Login(context.Background(), form)
		done <- err
	}()
	<-h.ident.started

	form.Email = " A@B.com "
	if _, err := h.c.Login(context.Background(), form); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("expected ErrSubmissionInProgress, got %v", err)
	}

	close(h.ident.block)
	if err := <-done; err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	h.ident.block = nil
	if _, err := h.c.Login(context.Background(), form); err != nil {
		t.Fatalf("expected a new submission to be accepted, got %v", err)
	}
}

func TestTeardownCancelsPendingNavigation(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	h.c.Scheduler = navigation.TimerScheduler{}
	h.c.LoginDelay = 50 * time.Millisecond

	var mu sync.Mutex
	var navigated []string
	flow := h.c.NewFlow(navigation.NavigatorFunc(func(target string) {
		mu.Lock()
		navigated = append(navigated, target)
		mu.Unlock()
	}))

	if _, err := flow.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	flow.Teardown()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(navigated) != 0 {
		t.Fatalf("navigation fired after teardown: %v", navigated)
	}
}

func TestTeardownDuringSubmissionSkipsNavigation(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	h.c.Scheduler = navigation.TimerScheduler{}
	h.c.LoginDelay = 30 * time.Millisecond
	h.ident.block = make(chan struct{})
	h.ident.started = make(chan struct{}, 1)

	var mu sync.Mutex
	var navigated []string
	flow := h.c.NewFlow(navigation.NavigatorFunc(func(target string) {
		mu.Lock()
		navigated = append(navigated, target)
		mu.Unlock()
	}))

	done := make(chan error, 1)
	go func() {
		_, err := flow.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
		done <- err
	}()
	<-h.ident.started
	flow.Teardown()
	close(h.ident.block)
	if err := <-done; err != nil {
		t.Fatalf("login: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(navigated) != 0 {
		t.Fatalf("navigation fired after teardown: %v", navigated)
	}
}

func TestFlowDismissAlert(t *testing.T) {
	h := newHarness()
	flow := h.c.NewFlow(nil)
	flow.Login(context.Background(), models.LoginForm{})
	if flow.Alert().Empty() {
		t.Fatal("expected an alert after a failed validation")
	}
	flow.DismissAlert()
	if !flow.Alert().Empty() {
		t.Fatal("expected the alert to be dismissed")
	}
}

type refreshingIdentity struct {
	*fakeIdentity
}

func (r refreshingIdentity) Token(_ context.Context, id *models.Identity) (string, error) {
	id.IDToken = "fresh-id"
	id.RefreshToken = "fresh-refresh"
	return id.IDToken, nil
}

func TestTokenSavesRefreshedTokens(t *testing.T) {
	h := newHarness()
	h.profiles.profiles["u1"] = models.UserProfile{UID: "u1", Role: models.RoleStudent}
	res, err := h.c.Login(context.Background(), models.LoginForm{Email: "a@b.com", Password: "Abc123"})
	if err != nil || res.State != StateSuccess {
		t.Fatalf("login: %+v %v", res, err)
	}
	h.c.Identity = refreshingIdentity{h.ident}

	s, err := h.c.Sessions.Get(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	token, err := h.c.Token(context.Background(), s)
	if err != nil || token != "fresh-id" {
		t.Fatalf("token: %q %v", token, err)
	}

	stored, _ := h.c.Sessions.Get(context.Background(), res.SessionID)
	if stored.IDToken != "fresh-id" || stored.RefreshToken != "fresh-refresh" {
		t.Fatalf("refreshed tokens were not saved: %+v", stored)
	}
}
