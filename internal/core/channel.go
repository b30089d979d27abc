package core

import "context"

// Channel abstracts the event transport for the Session.
// This interface lets the session emit intents without depending on the
// wire protocol or the connection lifecycle.
type Channel interface {
	// Emit sends a fire-and-forget intent.
	Emit(ctx context.Context, cmd Command) error

	// Request sends an intent and waits for the server's acknowledgement.
	// Used for search and room listing.
	Request(ctx context.Context, cmd Command) (*Reply, error)
}

// ListRooms asks the server which rooms exist. It needs no session and is
// used before choosing a room to join.
func ListRooms(ctx context.Context, ch Channel) ([]string, error) {
	reply, err := ch.Request(ctx, Command{Kind: CommandListRooms})
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	return reply.Rooms, nil
}
