package room

// Presence is one entry of the room roster as pushed by the server.
type Presence struct {
	ID       string
	Username string
	IsAdmin  bool
}

// Appearance holds the room-wide theme settings.
type Appearance struct {
	Theme           string
	BackgroundColor string
}

// dedupeRoster keeps the first entry per id and drops entries without one.
func dedupeRoster(in []Presence) []Presence {
	seen := make(map[string]struct{}, len(in))
	out := make([]Presence, 0, len(in))
	for _, p := range in {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func rosterEqual(a, b []Presence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
