package domain

import (
	"errors"
	"strings"
)

// RoomSeparator joins the two sorted participant ids into a room name.
const RoomSeparator = "--"

var ErrInvalidRoom = errors.New("chat: room name must encode exactly two participant ids")

// RoomName derives the canonical fanout routing key for a participant pair.
// It is order-independent: RoomName(a, b) == RoomName(b, a).
func RoomName(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + RoomSeparator + b
}

// ParseRoom splits a room name back into its two participant ids.
func ParseRoom(name string) (string, string, error) {
	parts := strings.Split(name, RoomSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRoom
	}
	return parts[0], parts[1], nil
}

// RoomHasMember reports whether userID is one of the ids encoded in the
// room name. Gate room joins on this so a caller can only subscribe to
// conversations it participates in.
func RoomHasMember(name, userID string) bool {
	a, b, err := ParseRoom(name)
	if err != nil {
		return false
	}
	return userID == a || userID == b
}
