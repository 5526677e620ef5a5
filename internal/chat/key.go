package chat

import "strings"

type KeyKind int

const (
	KeyBySession KeyKind = iota + 1
	KeyByUser
	KeyBoth
)

// SessionKey says how a transcript is looked up.
//
//   - BySession matches an anonymous session with that id.
//   - ByUser matches the user's most recently updated session.
//   - Both matches the session with that id if the user owns it or it is
//     still anonymous. Appending through Both claims an anonymous session.
//
// A session owned by one user is never reachable by another.
type SessionKey struct {
	Kind      KeyKind
	UserID    string
	SessionID string
}

func BySession(sessionID string) SessionKey {
	return SessionKey{Kind: KeyBySession, SessionID: sessionID}
}

func ByUser(userID string) SessionKey {
	return SessionKey{Kind: KeyByUser, UserID: userID}
}

func Both(userID, sessionID string) SessionKey {
	return SessionKey{Kind: KeyBoth, UserID: userID, SessionID: sessionID}
}

// ResolveKey picks the key variant from whatever identifiers the caller has.
// ok is false when both are empty.
func ResolveKey(userID, sessionID string) (key SessionKey, ok bool) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	switch {
	case userID != "" && sessionID != "":
		return Both(userID, sessionID), true
	case userID != "":
		return ByUser(userID), true
	case sessionID != "":
		return BySession(sessionID), true
	default:
		return SessionKey{}, false
	}
}

// lockNames lists the in-process exchange locks for the key, user first.
// ByUser resolves to one of the user's sessions, so a keyed session lock
// alone would not serialize it against Both on that same session. Every
// caller takes the names in this order.
func (k SessionKey) lockNames() []string {
	names := make([]string, 0, 2)
	if k.UserID != "" {
		names = append(names, "user:"+k.UserID)
	}
	if k.SessionID != "" {
		names = append(names, "session:"+k.SessionID)
	}
	return names
}

func (k SessionKey) String() string {
	switch k.Kind {
	case KeyBySession:
		return "session(" + k.SessionID + ")"
	case KeyByUser:
		return "user(" + k.UserID + ")"
	case KeyBoth:
		return "user(" + k.UserID + ")+session(" + k.SessionID + ")"
	default:
		return "invalid"
	}
}
