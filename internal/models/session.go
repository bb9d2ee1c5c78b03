package models

import "time"

// BroadcastMode identifies what the teacher is currently broadcasting.
type BroadcastMode string

const (
	ModeCamera     BroadcastMode = "CAMERA"
	ModeScreen     BroadcastMode = "SCREEN"
	ModeWhiteboard BroadcastMode = "WHITEBOARD"
)

// ValidBroadcastMode reports whether the given mode is one of the three
// broadcast modes. Any mode is reachable from any other while live.
func ValidBroadcastMode(m BroadcastMode) bool {
	switch m {
	case ModeCamera, ModeScreen, ModeWhiteboard:
		return true
	}
	return false
}

// LiveSession is the shared mutable broadcast-state record for one class.
// It exists exactly while the owning class is live; RaisedHands and
// ActiveSpeakers are sets (unique members, order irrelevant).
type LiveSession struct {
	ClassID        string        `json:"class_id"`
	Mode           BroadcastMode `json:"mode"`
	RaisedHands    []string      `json:"raised_hands"`
	ActiveSpeakers []string      `json:"active_speakers"`
	StartedAt      time.Time     `json:"started_at"`
}

// HasRaisedHand reports set membership in RaisedHands.
func (s *LiveSession) HasRaisedHand(userID string) bool {
	return containsID(s.RaisedHands, userID)
}

// HasSpeaker reports set membership in ActiveSpeakers.
func (s *LiveSession) HasSpeaker(userID string) bool {
	return containsID(s.ActiveSpeakers, userID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// SessionEventType labels session observation events.
type SessionEventType string

const (
	SessionEventStarted SessionEventType = "session_started"
	SessionEventUpdated SessionEventType = "session_updated"
	SessionEventEnded   SessionEventType = "session_ended"
)

// SessionEvent is delivered to observers whenever the session record
// changes. Edge fields carry the membership deltas since the previous
// snapshot so clients can acquire or release capture devices on
// transitions instead of re-checking levels every tick.
type SessionEvent struct {
	Type             SessionEventType `json:"type"`
	ClassID          string           `json:"class_id"`
	Session          *LiveSession     `json:"session,omitempty"`
	HandsRaised      []string         `json:"hands_raised,omitempty"`
	HandsLowered     []string         `json:"hands_lowered,omitempty"`
	SpeakersAdmitted []string         `json:"speakers_admitted,omitempty"`
	SpeakersRemoved  []string         `json:"speakers_removed,omitempty"`
}

// SessionView is the read model returned to clients: the raw record plus
// raised-hand profiles resolved best-effort for display.
type SessionView struct {
	Live        bool          `json:"live"`
	Session     *LiveSession  `json:"session,omitempty"`
	RaisedHands []UserSummary `json:"raised_hand_profiles,omitempty"`
}

// UserSummary is a minimal profile used in rosters and raised-hand lists.
type UserSummary struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}
