package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.LiveSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*models.LiveSession)}
}

func (m *memSessionStore) Create(ctx context.Context, session *models.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	copied.RaisedHands = append([]string{}, session.RaisedHands...)
	copied.ActiveSpeakers = append([]string{}, session.ActiveSpeakers...)
	m.sessions[session.ClassID] = &copied
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, classID string) (*models.LiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return nil, nil
	}
	copied := *session
	copied.RaisedHands = append([]string{}, session.RaisedHands...)
	copied.ActiveSpeakers = append([]string{}, session.ActiveSpeakers...)
	sort.Strings(copied.RaisedHands)
	sort.Strings(copied.ActiveSpeakers)
	return &copied, nil
}

func (m *memSessionStore) Delete(ctx context.Context, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, classID)
	return nil
}

func (m *memSessionStore) SetMode(ctx context.Context, classID string, mode models.BroadcastMode) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return false, nil
	}
	session.Mode = mode
	return true, nil
}

func (m *memSessionStore) AddHand(ctx context.Context, classID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return false, nil
	}
	session.RaisedHands = addMember(session.RaisedHands, userID)
	return true, nil
}

func (m *memSessionStore) RemoveHand(ctx context.Context, classID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return false, nil
	}
	session.RaisedHands = removeMember(session.RaisedHands, userID)
	return true, nil
}

func (m *memSessionStore) AdmitSpeaker(ctx context.Context, classID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return false, nil
	}
	session.RaisedHands = removeMember(session.RaisedHands, userID)
	session.ActiveSpeakers = addMember(session.ActiveSpeakers, userID)
	return true, nil
}

func (m *memSessionStore) RemoveSpeaker(ctx context.Context, classID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[classID]
	if !ok {
		return false, nil
	}
	session.ActiveSpeakers = removeMember(session.ActiveSpeakers, userID)
	return true, nil
}

func addMember(set []string, member string) []string {
	for _, existing := range set {
		if existing == member {
			return set
		}
	}
	return append(set, member)
}

func removeMember(set []string, member string) []string {
	out := set[:0]
	for _, existing := range set {
		if existing != member {
			out = append(out, existing)
		}
	}
	return out
}

type mockLiveClassStore struct {
	classes map[string]*models.Class
}

func (m *mockLiveClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		copied := *class
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLiveClassStore) SetLive(ctx context.Context, id string, live bool) error {
	if class, ok := m.classes[id]; ok {
		class.IsLive = live
		return nil
	}
	return sql.ErrNoRows
}

type mockProfileResolver struct {
	names map[string]string
}

func (m *mockProfileResolver) FindSummariesByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if name, ok := m.names[id]; ok {
			out = append(out, models.UserSummary{ID: id, FullName: name, Role: models.RoleStudent})
		}
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event models.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) all() []models.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.SessionEvent{}, p.events...)
}

func newLiveFixture() (*LiveService, *memSessionStore, *mockLiveClassStore, *capturingPublisher) {
	store := newMemSessionStore()
	classes := &mockLiveClassStore{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerID: "teacher-1", Title: "Algebra"},
	}}
	profiles := &mockProfileResolver{names: map[string]string{
		"student-a": "Student A",
		"student-b": "Student B",
	}}
	publisher := &capturingPublisher{}
	svc := NewLiveService(store, classes, profiles, publisher, nil, nil, zap.NewNop())
	return svc, store, classes, publisher
}

func TestStartSessionDefaults(t *testing.T) {
	svc, _, classes, publisher := newLiveFixture()
	ctx := context.Background()

	before := time.Now().UTC()
	session, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)

	assert.Equal(t, models.ModeCamera, session.Mode)
	assert.Empty(t, session.RaisedHands)
	assert.Empty(t, session.ActiveSpeakers)
	assert.False(t, session.StartedAt.Before(before))
	assert.True(t, classes.classes["class-1"].IsLive)

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.SessionEventStarted, events[0].Type)
}

func TestStartSessionIdempotent(t *testing.T) {
	svc, _, _, _ := newLiveFixture()
	ctx := context.Background()

	first, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.SetMode(ctx, "class-1", "teacher-1", models.RoleTeacher, models.ModeScreen))

	second, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, first.StartedAt, second.StartedAt)
	assert.Equal(t, models.ModeScreen, second.Mode, "restarting must not reset the running session")
}

func TestStartSessionUnknownClass(t *testing.T) {
	svc, _, _, _ := newLiveFixture()

	_, err := svc.StartSession(context.Background(), "missing", "teacher-1", models.RoleTeacher)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStartSessionRequiresOwnership(t *testing.T) {
	svc, _, _, _ := newLiveFixture()

	_, err := svc.StartSession(context.Background(), "class-1", "teacher-2", models.RoleTeacher)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEndSessionRemovesRecord(t *testing.T) {
	svc, store, classes, publisher := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(ctx, "class-1", "teacher-1", models.RoleTeacher))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.False(t, classes.classes["class-1"].IsLive)

	events := publisher.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.SessionEventEnded, events[1].Type)
}

func TestEndSessionNotLiveIsNoop(t *testing.T) {
	svc, _, _, publisher := newLiveFixture()

	require.NoError(t, svc.EndSession(context.Background(), "class-1", "teacher-1", models.RoleTeacher))
	assert.Empty(t, publisher.all())
}

func TestRaiseHandIsIdempotent(t *testing.T) {
	svc, store, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"student-a"}, session.RaisedHands)
}

func TestRaiseHandOnNonLiveClassIsNoop(t *testing.T) {
	svc, store, _, publisher := newLiveFixture()
	ctx := context.Background()

	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, publisher.all())
}

func TestAdmitSpeakerMovesHandToSpeakers(t *testing.T) {
	svc, store, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.AdmitSpeaker(ctx, "class-1", "teacher-1", models.RoleTeacher, "student-a"))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Empty(t, session.RaisedHands)
	assert.Equal(t, []string{"student-a"}, session.ActiveSpeakers)
}

func TestMuteSpeakerLeavesHandsUntouched(t *testing.T) {
	svc, store, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-b"))
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.AdmitSpeaker(ctx, "class-1", "teacher-1", models.RoleTeacher, "student-a"))
	require.NoError(t, svc.MuteSpeaker(ctx, "class-1", "teacher-1", models.RoleTeacher, "student-a"))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"student-b"}, session.RaisedHands)
	assert.Empty(t, session.ActiveSpeakers)
}

func TestSetModeOnNonLiveClassIsNoop(t *testing.T) {
	svc, store, _, publisher := newLiveFixture()
	ctx := context.Background()

	require.NoError(t, svc.SetMode(ctx, "class-1", "teacher-1", models.RoleTeacher, models.ModeScreen))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, publisher.all())

	view, err := svc.GetSessionState(ctx, "class-1")
	require.NoError(t, err)
	assert.False(t, view.Live)
	assert.Nil(t, view.Session)
}

func TestSetModeValidation(t *testing.T) {
	svc, _, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)

	err = svc.SetMode(ctx, "class-1", "teacher-1", models.RoleTeacher, models.BroadcastMode("HOLOGRAM"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSessionLifecycleScenario(t *testing.T) {
	svc, store, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-b"))
	require.NoError(t, svc.AdmitSpeaker(ctx, "class-1", "teacher-1", models.RoleTeacher, "student-a"))
	require.NoError(t, svc.LowerHand(ctx, "class-1", "student-b"))

	session, err := store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Empty(t, session.RaisedHands)
	assert.Equal(t, []string{"student-a"}, session.ActiveSpeakers)

	require.NoError(t, svc.EndSession(ctx, "class-1", "teacher-1", models.RoleTeacher))
	session, err = store.Get(ctx, "class-1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSecondSessionStartsClean(t *testing.T) {
	svc, _, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.AdmitSpeaker(ctx, "class-1", "teacher-1", models.RoleTeacher, "student-a"))
	require.NoError(t, svc.EndSession(ctx, "class-1", "teacher-1", models.RoleTeacher))

	second, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, second.RaisedHands, "membership must not leak across sessions")
	assert.Empty(t, second.ActiveSpeakers)
}

func TestGetSessionStateResolvesProfiles(t *testing.T) {
	svc, _, _, _ := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "unknown-user"))

	view, err := svc.GetSessionState(ctx, "class-1")
	require.NoError(t, err)
	assert.True(t, view.Live)
	require.Len(t, view.RaisedHands, 1, "unresolvable ids are dropped from the display list")
	assert.Equal(t, "Student A", view.RaisedHands[0].FullName)
}

func TestGetSessionStateNotLive(t *testing.T) {
	svc, _, _, _ := newLiveFixture()

	view, err := svc.GetSessionState(context.Background(), "class-1")
	require.NoError(t, err)
	assert.False(t, view.Live)
	assert.Nil(t, view.Session)
}

func TestUpdateEventsCarrySnapshots(t *testing.T) {
	svc, _, _, publisher := newLiveFixture()
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "class-1", "student-a"))

	events := publisher.all()
	require.Len(t, events, 2)
	assert.Equal(t, models.SessionEventUpdated, events[1].Type)
	require.NotNil(t, events[1].Session)
	assert.Equal(t, []string{"student-a"}, events[1].Session.RaisedHands)
}

type capturingAuditor struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *capturingAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *log)
	return nil
}

func TestSessionLifecycleWritesAuditTrail(t *testing.T) {
	store := newMemSessionStore()
	classes := &mockLiveClassStore{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerID: "teacher-1", Title: "Algebra"},
	}}
	auditor := &capturingAuditor{}
	svc := NewLiveService(store, classes, nil, nil, auditor, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.StartSession(ctx, "class-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(ctx, "class-1", "teacher-1", models.RoleTeacher))

	require.Len(t, auditor.entries, 2)
	start, end := auditor.entries[0], auditor.entries[1]

	assert.Equal(t, models.AuditActionSessionStart, start.Action)
	assert.Equal(t, models.AuditActionSessionEnd, end.Action)
	for _, entry := range auditor.entries {
		assert.Equal(t, "live_session", entry.Resource)
		require.NotNil(t, entry.UserID)
		assert.Equal(t, "teacher-1", *entry.UserID)
		require.NotNil(t, entry.ResourceID)
		assert.Equal(t, "class-1", *entry.ResourceID)
	}
}

func TestEndSessionNoopLeavesNoAuditTrail(t *testing.T) {
	store := newMemSessionStore()
	classes := &mockLiveClassStore{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerID: "teacher-1", Title: "Algebra"},
	}}
	auditor := &capturingAuditor{}
	svc := NewLiveService(store, classes, nil, nil, auditor, nil, zap.NewNop())

	require.NoError(t, svc.EndSession(context.Background(), "class-1", "teacher-1", models.RoleTeacher))
	assert.Empty(t, auditor.entries)
}
