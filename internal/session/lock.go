// Package session owns the server-authoritative RobotConnection record,
// its control-lock token, and the client manager that fans server-side
// state changes out to every subscriber of a given robot, grounded on
// spec.md §4.7.
package session

import (
	"sync"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// ControlLock is a single-holder authorization token: whoever holds it may
// issue state-changing requests against the robot. Deliberately simpler
// than a leased lock — spec.md §4.7 says only "token loss occurs on client
// disconnect", with no lease or auto-extend, so there is nothing here to
// expire.
type ControlLock struct {
	mu     sync.Mutex
	holder string
	held   bool
}

// Request grants the token if free, or fails with ErrControlDenied naming
// the current holder.
func (l *ControlLock) Request(clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held && l.holder != clientID {
		return &wire.Error{Kind: wire.ErrControlDenied, HolderID: l.holder}
	}
	l.held = true
	l.holder = clientID
	return nil
}

// Release frees the token if clientID currently holds it. Releasing a
// token you don't hold is a no-op, not an error.
func (l *ControlLock) Release(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held && l.holder == clientID {
		l.held = false
		l.holder = ""
	}
}

// ReleaseIfHeldBy is Release under another name. The dispatcher's
// disconnect handling calls Release directly.
func (l *ControlLock) ReleaseIfHeldBy(clientID string) { l.Release(clientID) }

// Holder reports the current token holder, if any.
func (l *ControlLock) Holder() (clientID string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder, l.held
}

// Check is the read-path guard every state-changing request runs through.
func (l *ControlLock) Check(clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held && l.holder != clientID {
		return &wire.Error{Kind: wire.ErrControlDenied, HolderID: l.holder}
	}
	return nil
}
