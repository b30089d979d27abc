package typing

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// mentionPattern matches an @ token at the very end of the draft. The token
// must start the draft or follow whitespace so addresses like a@b do not
// trigger completion.
var mentionPattern = regexp.MustCompile(`(?i)(?:^|\s)@([\p{L}\p{M}\p{N}_]*)$`)

// MentionFragment returns the text typed after the trailing @ and the byte
// offset of that @. ok is false when the draft does not end in a mention.
func MentionFragment(draft string) (fragment string, at int, ok bool) {
	loc := mentionPattern.FindStringSubmatchIndex(draft)
	if loc == nil {
		return "", 0, false
	}
	return draft[loc[2]:loc[3]], loc[2] - 1, true
}

// Suggest lists roster usernames that contain the trailing mention fragment,
// ignoring case. The local user is left out.
func Suggest(draft string, roster []room.Presence, selfID string) []string {
	fragment, _, ok := MentionFragment(draft)
	if !ok {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(fragment)

	seen := make(map[string]struct{}, len(roster))
	var out []string
	for _, p := range roster {
		if p.Username == "" || (selfID != "" && p.ID == selfID) {
			continue
		}
		if _, dup := seen[p.Username]; dup {
			continue
		}
		if strings.Contains(fold.String(p.Username), needle) {
			seen[p.Username] = struct{}{}
			out = append(out, p.Username)
		}
	}
	return out
}

// Complete replaces the trailing mention token with @username and a space.
// Drafts without a trailing mention are returned unchanged.
func Complete(draft, username string) string {
	_, at, ok := MentionFragment(draft)
	if !ok {
		return draft
	}
	return draft[:at] + "@" + username + " "
}
