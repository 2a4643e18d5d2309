package presence

import "context"

// Store tracks which user identities currently hold at least one open
// connection. Membership is keyed per (user, connection) so a user with
// several devices only goes offline when the last connection closes.
// Implementations must be concurrency-safe.
type Store interface {
	// Connect records a connection for the user and reports whether this
	// was the user's first live connection (offline -> online transition).
	Connect(ctx context.Context, userID, connID string) (cameOnline bool, err error)

	// Disconnect removes a connection and reports whether it was the
	// user's last one (online -> offline transition).
	Disconnect(ctx context.Context, userID, connID string) (wentOffline bool, err error)

	// Online lists the ids of all currently-online users.
	Online(ctx context.Context) ([]string, error)

	// IsOnline tests a single user.
	IsOnline(ctx context.Context, userID string) (bool, error)

	Close() error
}
