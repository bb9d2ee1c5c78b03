package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	appErrors "github.com/mohsenjasser15-hash/jexam-api/pkg/errors"
)

// SessionStore abstracts the keyed live-session store. The production
// implementation sits on Redis; tests use an in-memory map behind the same
// interface. Mutations on a class without a session return (false, nil) so
// the service can treat them as no-ops.
type SessionStore interface {
	Create(ctx context.Context, session *models.LiveSession) error
	Get(ctx context.Context, classID string) (*models.LiveSession, error)
	Delete(ctx context.Context, classID string) error
	SetMode(ctx context.Context, classID string, mode models.BroadcastMode) (bool, error)
	AddHand(ctx context.Context, classID, userID string) (bool, error)
	RemoveHand(ctx context.Context, classID, userID string) (bool, error)
	AdmitSpeaker(ctx context.Context, classID, userID string) (bool, error)
	RemoveSpeaker(ctx context.Context, classID, userID string) (bool, error)
}

type sessionPublisher interface {
	Publish(ctx context.Context, event models.SessionEvent) error
}

type liveClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	SetLive(ctx context.Context, id string, live bool) error
}

type profileResolver interface {
	FindSummariesByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

type sessionAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LiveService owns the broadcast-state record per class and funnels every
// mutation through its command set. Class liveness and session existence
// move together: StartSession creates the record then raises the flag,
// EndSession deletes the record then clears it.
type LiveService struct {
	store    SessionStore
	classes  liveClassStore
	profiles profileResolver
	events   sessionPublisher
	audit    sessionAuditRecorder
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewLiveService constructs the live session service. audit may be nil,
// in which case session start/end leave no audit trail.
func NewLiveService(store SessionStore, classes liveClassStore, profiles profileResolver, events sessionPublisher, audit sessionAuditRecorder, metrics *MetricsService, logger *zap.Logger) *LiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveService{store: store, classes: classes, profiles: profiles, events: events, audit: audit, metrics: metrics, logger: logger}
}

// StartSession creates the session record with camera mode, empty
// membership sets and a fresh start time, then marks the class live.
// Starting an already-live class returns the existing record.
func (s *LiveService) StartSession(ctx context.Context, classID, actorID string, role models.UserRole) (*models.LiveSession, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(class, actorID, role); err != nil {
		return nil, err
	}

	if existing, err := s.store.Get(ctx, classID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read session")
	} else if existing != nil {
		return existing, nil
	}

	session := &models.LiveSession{
		ClassID:        classID,
		Mode:           models.ModeCamera,
		RaisedHands:    []string{},
		ActiveSpeakers: []string{},
		StartedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session")
	}
	if err := s.classes.SetLive(ctx, classID, true); err != nil {
		// roll the record back so liveness and session existence stay paired
		if delErr := s.store.Delete(ctx, classID); delErr != nil {
			s.logger.Error("failed to roll back session record", zap.String("class_id", classID), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark class live")
	}

	if s.metrics != nil {
		s.metrics.SessionStarted()
	}
	s.publish(ctx, models.SessionEvent{Type: models.SessionEventStarted, ClassID: classID, Session: session})
	s.recordAudit(ctx, models.AuditActionSessionStart, actorID, classID)
	s.logger.Info("session started", zap.String("class_id", classID), zap.String("teacher_id", actorID))
	return session, nil
}

// EndSession deletes the session record and clears the liveness flag.
// Ending a class that is not live is a no-op.
func (s *LiveService) EndSession(ctx context.Context, classID, actorID string, role models.UserRole) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(class, actorID, role); err != nil {
		return err
	}

	existing, err := s.store.Get(ctx, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read session")
	}
	if existing == nil && !class.IsLive {
		return nil
	}

	if err := s.store.Delete(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	if err := s.classes.SetLive(ctx, classID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear live flag")
	}

	if s.metrics != nil {
		s.metrics.SessionEnded()
	}
	s.publish(ctx, models.SessionEvent{Type: models.SessionEventEnded, ClassID: classID})
	s.recordAudit(ctx, models.AuditActionSessionEnd, actorID, classID)
	s.logger.Info("session ended", zap.String("class_id", classID), zap.String("teacher_id", actorID))
	return nil
}

// SetMode switches what the teacher is broadcasting. A class without a
// live session is left untouched.
func (s *LiveService) SetMode(ctx context.Context, classID, actorID string, role models.UserRole, mode models.BroadcastMode) error {
	if !models.ValidBroadcastMode(mode) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown broadcast mode")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(class, actorID, role); err != nil {
		return err
	}
	return s.mutate(ctx, classID, "set_mode", func() (bool, error) {
		return s.store.SetMode(ctx, classID, mode)
	})
}

// RaiseHand adds the student to the raised-hands set. Duplicate raises are
// absorbed by set semantics.
func (s *LiveService) RaiseHand(ctx context.Context, classID, userID string) error {
	return s.mutate(ctx, classID, "raise_hand", func() (bool, error) {
		return s.store.AddHand(ctx, classID, userID)
	})
}

// LowerHand removes the student from the raised-hands set. A late lower
// after the session ended is a silent no-op.
func (s *LiveService) LowerHand(ctx context.Context, classID, userID string) error {
	return s.mutate(ctx, classID, "lower_hand", func() (bool, error) {
		return s.store.RemoveHand(ctx, classID, userID)
	})
}

// AdmitSpeaker grants the microphone: the user joins active speakers and
// leaves raised hands in one step, so no observer sees both memberships.
func (s *LiveService) AdmitSpeaker(ctx context.Context, classID, actorID string, role models.UserRole, userID string) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(class, actorID, role); err != nil {
		return err
	}
	return s.mutate(ctx, classID, "admit_speaker", func() (bool, error) {
		return s.store.AdmitSpeaker(ctx, classID, userID)
	})
}

// MuteSpeaker revokes the microphone, leaving raised hands untouched.
func (s *LiveService) MuteSpeaker(ctx context.Context, classID, actorID string, role models.UserRole, userID string) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(class, actorID, role); err != nil {
		return err
	}
	return s.mutate(ctx, classID, "mute_speaker", func() (bool, error) {
		return s.store.RemoveSpeaker(ctx, classID, userID)
	})
}

// GetSessionState returns the current record, or an explicit "not live"
// view when absent. Raised-hand ids are resolved to profiles best-effort:
// a failed lookup drops the entry from the display list, never errors.
func (s *LiveService) GetSessionState(ctx context.Context, classID string) (*models.SessionView, error) {
	if _, err := s.loadClass(ctx, classID); err != nil {
		return nil, err
	}
	session, err := s.store.Get(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read session")
	}
	if session == nil {
		return &models.SessionView{Live: false}, nil
	}

	view := &models.SessionView{Live: true, Session: session}
	if len(session.RaisedHands) > 0 && s.profiles != nil {
		profiles, err := s.profiles.FindSummariesByIDs(ctx, session.RaisedHands)
		if err != nil {
			s.logger.Warn("failed to resolve raised-hand profiles", zap.String("class_id", classID), zap.Error(err))
		} else {
			view.RaisedHands = profiles
		}
	}
	return view, nil
}

// GetSession exposes the raw record for observers. Absent sessions return
// (nil, nil).
func (s *LiveService) GetSession(ctx context.Context, classID string) (*models.LiveSession, error) {
	return s.store.Get(ctx, classID)
}

func (s *LiveService) mutate(ctx context.Context, classID, op string, apply func() (bool, error)) error {
	applied, err := apply()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	if !applied {
		s.logger.Debug("session command on non-live class ignored", zap.String("class_id", classID), zap.String("op", op))
		return nil
	}
	if s.metrics != nil {
		s.metrics.SessionCommand(op)
	}
	session, err := s.store.Get(ctx, classID)
	if err != nil || session == nil {
		// session ended between write and read; the ended event covers it
		return nil
	}
	s.publish(ctx, models.SessionEvent{Type: models.SessionEventUpdated, ClassID: classID, Session: session})
	return nil
}

func (s *LiveService) publish(ctx context.Context, event models.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish session event", zap.String("class_id", event.ClassID), zap.Error(err))
	}
}

func (s *LiveService) recordAudit(ctx context.Context, action, actorID, classID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "live_session",
		ResourceID: &classID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record session audit log", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *LiveService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *LiveService) requireOwner(class *models.Class, actorID string, role models.UserRole) error {
	if role == models.RoleAdmin {
		return nil
	}
	if class.OwnerID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the class owner can run this command")
	}
	return nil
}
