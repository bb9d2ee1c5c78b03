package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mohsenjasser15-hash/jexam-api/internal/models"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/config"
)

// SessionObserver delivers a stream of session events for one class. The
// returned cancel func always releases the subscription; after cancel or
// context expiry no further events are delivered and the channel closes.
type SessionObserver interface {
	Observe(ctx context.Context, classID string) (<-chan models.SessionEvent, func(), error)
}

type sessionSubscriber interface {
	Subscribe(ctx context.Context, classID string) (<-chan models.SessionEvent, func(), error)
	Get(ctx context.Context, classID string) (*models.LiveSession, error)
}

type sessionReader interface {
	Get(ctx context.Context, classID string) (*models.LiveSession, error)
}

// NewSessionObserver picks the observation strategy from config. Push rides
// the event bus; poll samples the store on a fixed interval and synthesizes
// the same event shapes, so consumers cannot tell the two apart.
func NewSessionObserver(cfg config.LiveConfig, source sessionSubscriber, logger *zap.Logger) SessionObserver {
	if cfg.SyncMode == config.LiveSyncPoll {
		return NewPollObserver(source, cfg.PollInterval, cfg.EventBuffer, logger)
	}
	return NewPushObserver(source, cfg.EventBuffer, logger)
}

// PushObserver relays published session events, annotating each with the
// membership deltas since the previous delivery.
type PushObserver struct {
	source sessionSubscriber
	buffer int
	logger *zap.Logger
}

// NewPushObserver constructs a push-based observer.
func NewPushObserver(source sessionSubscriber, buffer int, logger *zap.Logger) *PushObserver {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushObserver{source: source, buffer: buffer, logger: logger}
}

// Observe subscribes to the class event channel. The current snapshot is
// read once up front as the diff baseline, so a subscriber that registers
// mid-session sees correct deltas from its first event.
func (o *PushObserver) Observe(ctx context.Context, classID string) (<-chan models.SessionEvent, func(), error) {
	raw, cancel, err := o.source.Subscribe(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	baseline, err := o.source.Get(ctx, classID)
	if err != nil {
		o.logger.Warn("failed to read baseline snapshot", zap.String("class_id", classID), zap.Error(err))
		baseline = nil
	}

	out := make(chan models.SessionEvent, o.buffer)
	go func() {
		defer close(out)
		prev := baseline
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-raw:
				if !ok {
					return
				}
				annotateEdges(&event, prev)
				prev = event.Session
				select {
				case out <- event:
				case <-ctx.Done():
					return
				default:
					o.logger.Warn("dropping session event for slow consumer", zap.String("class_id", classID))
				}
			}
		}
	}()
	return out, cancel, nil
}

// PollObserver samples the session store on a fixed interval and emits
// events only when the observed state changed. Transient read failures are
// logged and skipped; the next successful poll resynchronizes.
type PollObserver struct {
	reader   sessionReader
	interval time.Duration
	buffer   int
	logger   *zap.Logger
}

// NewPollObserver constructs a poll-based observer.
func NewPollObserver(reader sessionReader, interval time.Duration, buffer int, logger *zap.Logger) *PollObserver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollObserver{reader: reader, interval: interval, buffer: buffer, logger: logger}
}

// Observe starts the polling loop for one class.
func (o *PollObserver) Observe(ctx context.Context, classID string) (<-chan models.SessionEvent, func(), error) {
	prev, err := o.reader.Get(ctx, classID)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan models.SessionEvent, o.buffer)
	go func() {
		defer close(out)
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				curr, err := o.reader.Get(ctx, classID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					o.logger.Warn("session poll failed", zap.String("class_id", classID), zap.Error(err))
					continue
				}
				event, changed := diffSessions(classID, prev, curr)
				prev = curr
				if !changed {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				default:
					o.logger.Warn("dropping session event for slow consumer", zap.String("class_id", classID))
				}
			}
		}
	}()
	return out, cancel, nil
}

// diffSessions compares two snapshots and builds the event describing the
// transition, if any.
func diffSessions(classID string, prev, curr *models.LiveSession) (models.SessionEvent, bool) {
	switch {
	case prev == nil && curr == nil:
		return models.SessionEvent{}, false
	case prev == nil:
		event := models.SessionEvent{Type: models.SessionEventStarted, ClassID: classID, Session: curr}
		annotateEdges(&event, nil)
		return event, true
	case curr == nil:
		event := models.SessionEvent{Type: models.SessionEventEnded, ClassID: classID}
		annotateEdges(&event, prev)
		return event, true
	}

	event := models.SessionEvent{Type: models.SessionEventUpdated, ClassID: classID, Session: curr}
	annotateEdges(&event, prev)
	if prev.Mode == curr.Mode && prev.StartedAt.Equal(curr.StartedAt) &&
		len(event.HandsRaised) == 0 && len(event.HandsLowered) == 0 &&
		len(event.SpeakersAdmitted) == 0 && len(event.SpeakersRemoved) == 0 {
		return models.SessionEvent{}, false
	}
	return event, true
}

// annotateEdges fills the membership deltas on event relative to prev.
// Ended events carry no session and get lowered/removed edges for everyone
// still in the previous snapshot.
func annotateEdges(event *models.SessionEvent, prev *models.LiveSession) {
	var prevHands, prevSpeakers []string
	if prev != nil {
		prevHands = prev.RaisedHands
		prevSpeakers = prev.ActiveSpeakers
	}
	var currHands, currSpeakers []string
	if event.Session != nil {
		currHands = event.Session.RaisedHands
		currSpeakers = event.Session.ActiveSpeakers
	}
	event.HandsRaised, event.HandsLowered = diffMembers(prevHands, currHands)
	event.SpeakersAdmitted, event.SpeakersRemoved = diffMembers(prevSpeakers, currSpeakers)
}

func diffMembers(prev, curr []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		prevSet[id] = struct{}{}
	}
	currSet := make(map[string]struct{}, len(curr))
	for _, id := range curr {
		currSet[id] = struct{}{}
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := currSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
