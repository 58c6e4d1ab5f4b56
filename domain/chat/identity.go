package chat

import "time"

// Handle identifies one live transport connection.
// It has no meaning once the connection is gone.
type Handle string

const NoHandle Handle = ""

// Identity is a registered account.
// Handle is set iff Online is true.
type Identity struct {
	Name         string
	PasswordHash string
	Online       bool
	LastSeen     time.Time
	Handle       Handle
	CreatedAt    time.Time
}

// GoOnline stamps the identity as bound to handle.
func (i Identity) GoOnline(handle Handle, at time.Time) Identity {
	i.Online = true
	i.Handle = handle
	i.LastSeen = at.UTC()
	return i
}

// GoOffline clears the handle and stamps the last-seen time.
func (i Identity) GoOffline(at time.Time) Identity {
	i.Online = false
	i.Handle = NoHandle
	i.LastSeen = at.UTC()
	return i
}

// RosterEntry is one line of the online roster.
type RosterEntry struct {
	Name   string
	Online bool
}
