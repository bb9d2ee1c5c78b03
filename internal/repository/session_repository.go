package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
)

// SessionRepository is the Redis-backed store for live session records.
// Each class maps to three keys: a hash carrying mode and start time, and
// two sets for raised hands and active speakers. Set membership changes go
// through SADD/SREM so concurrent raise/lower/admit commands never lose
// updates to a read-modify-write race; the admit pairing runs inside one
// MULTI/EXEC so observers cannot read the admitted-but-still-raised state.
// Every mutation publishes the refreshed snapshot on the class event
// channel for push-mode observers.
type SessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client *redis.Client, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{client: client, logger: logger}
}

func sessionKey(classID string) string  { return "live:session:" + classID }
func handsKey(classID string) string    { return "live:hands:" + classID }
func speakersKey(classID string) string { return "live:speakers:" + classID }
func eventsChannel(classID string) string {
	return "live:events:" + classID
}

// Create writes a fresh session record, clearing any residue from an
// earlier broadcast of the same class.
func (r *SessionRepository) Create(ctx context.Context, session *models.LiveSession) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, handsKey(session.ClassID), speakersKey(session.ClassID))
	pipe.HSet(ctx, sessionKey(session.ClassID),
		"mode", string(session.Mode),
		"started_at", session.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create live session: %w", err)
	}
	return nil
}

// Get loads the session record for a class. A missing record returns
// (nil, nil) so callers can read "not live" unambiguously.
func (r *SessionRepository) Get(ctx context.Context, classID string) (*models.LiveSession, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(classID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get live session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	session := &models.LiveSession{
		ClassID: classID,
		Mode:    models.BroadcastMode(fields["mode"]),
	}
	if raw := fields["started_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			session.StartedAt = ts
		}
	}

	hands, err := r.client.SMembers(ctx, handsKey(classID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get raised hands: %w", err)
	}
	speakers, err := r.client.SMembers(ctx, speakersKey(classID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get active speakers: %w", err)
	}
	sort.Strings(hands)
	sort.Strings(speakers)
	session.RaisedHands = hands
	session.ActiveSpeakers = speakers
	return session, nil
}

// Delete removes every key belonging to the session. Deleting an absent
// session is a no-op.
func (r *SessionRepository) Delete(ctx context.Context, classID string) error {
	if err := r.client.Del(ctx, sessionKey(classID), handsKey(classID), speakersKey(classID)).Err(); err != nil {
		return fmt.Errorf("delete live session: %w", err)
	}
	return nil
}

// Exists reports whether a session record is present for the class.
func (r *SessionRepository) Exists(ctx context.Context, classID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(classID)).Result()
	if err != nil {
		return false, fmt.Errorf("check live session: %w", err)
	}
	return n > 0, nil
}

// SetMode replaces the broadcast mode on an existing record. Returns false
// without error when the class is not live.
func (r *SessionRepository) SetMode(ctx context.Context, classID string, mode models.BroadcastMode) (bool, error) {
	live, err := r.Exists(ctx, classID)
	if err != nil || !live {
		return false, err
	}
	if err := r.client.HSet(ctx, sessionKey(classID), "mode", string(mode)).Err(); err != nil {
		return false, fmt.Errorf("set broadcast mode: %w", err)
	}
	return true, nil
}

// AddHand idempotently adds the user to the raised-hands set.
func (r *SessionRepository) AddHand(ctx context.Context, classID, userID string) (bool, error) {
	live, err := r.Exists(ctx, classID)
	if err != nil || !live {
		return false, err
	}
	if err := r.client.SAdd(ctx, handsKey(classID), userID).Err(); err != nil {
		return false, fmt.Errorf("raise hand: %w", err)
	}
	return true, nil
}

// RemoveHand idempotently removes the user from the raised-hands set.
func (r *SessionRepository) RemoveHand(ctx context.Context, classID, userID string) (bool, error) {
	live, err := r.Exists(ctx, classID)
	if err != nil || !live {
		return false, err
	}
	if err := r.client.SRem(ctx, handsKey(classID), userID).Err(); err != nil {
		return false, fmt.Errorf("lower hand: %w", err)
	}
	return true, nil
}

// AdmitSpeaker moves the user into the speakers set and out of the
// raised-hands set as one transaction.
func (r *SessionRepository) AdmitSpeaker(ctx context.Context, classID, userID string) (bool, error) {
	live, err := r.Exists(ctx, classID)
	if err != nil || !live {
		return false, err
	}
	pipe := r.client.TxPipeline()
	pipe.SRem(ctx, handsKey(classID), userID)
	pipe.SAdd(ctx, speakersKey(classID), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("admit speaker: %w", err)
	}
	return true, nil
}

// RemoveSpeaker idempotently removes the user from the speakers set,
// leaving raised hands untouched.
func (r *SessionRepository) RemoveSpeaker(ctx context.Context, classID, userID string) (bool, error) {
	live, err := r.Exists(ctx, classID)
	if err != nil || !live {
		return false, err
	}
	if err := r.client.SRem(ctx, speakersKey(classID), userID).Err(); err != nil {
		return false, fmt.Errorf("mute speaker: %w", err)
	}
	return true, nil
}

// Publish fans the event out to push-mode subscribers of the class.
func (r *SessionRepository) Publish(ctx context.Context, event models.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := r.client.Publish(ctx, eventsChannel(event.ClassID), payload).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Subscribe opens a push subscription for the class event channel. Events
// flow on the returned channel until cancel is called or ctx is done; the
// channel is closed afterwards and no further deliveries happen.
func (r *SessionRepository) Subscribe(ctx context.Context, classID string) (<-chan models.SessionEvent, func(), error) {
	sub := r.client.Subscribe(ctx, eventsChannel(classID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe session events: %w", err)
	}

	out := make(chan models.SessionEvent, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.logger.Warn("drop malformed session event", zap.String("class_id", classID), zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}
