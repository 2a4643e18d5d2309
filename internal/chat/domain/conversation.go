package domain

import (
	"errors"
	"time"
)

var (
	ErrSameParticipant  = errors.New("chat: conversation requires two distinct participants")
	ErrEmptyParticipant = errors.New("chat: participant id must not be empty")
)

// Conversation is an unordered pair of participants. The pair is stored
// sorted (UserLow < UserHigh) so the store can enforce that at most one
// conversation exists for any pair regardless of who initiated it.
type Conversation struct {
	ID            string    `db:"id"`
	UserLow       string    `db:"user_low"`
	UserHigh      string    `db:"user_high"`
	LastMessageID *string   `db:"last_message_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// PairKey normalizes two participant ids into their canonical sorted order.
func PairKey(a, b string) (low, high string, err error) {
	if a == "" || b == "" {
		return "", "", ErrEmptyParticipant
	}
	if a == b {
		return "", "", ErrSameParticipant
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// Participants returns both member ids in canonical order.
func (c *Conversation) Participants() [2]string {
	return [2]string{c.UserLow, c.UserHigh}
}

// HasParticipant tells whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.UserLow || userID == c.UserHigh)
}
