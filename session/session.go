/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package session drives the per-Client authentication state machine,
// wiring the Connection Registry to the Credential Store.
package session

import (
	"errors"

	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/registry"
)

// ErrWrongCredentials is returned by Authenticate when name/cred do not
// match a registered, active user.
var ErrWrongCredentials = errors.New("session: invalid username or credential")

// ErrIdentityMismatch is returned by Authenticate when handle is
// already Authenticated as a different identity than the one being
// requested.
var ErrIdentityMismatch = errors.New("session: handle already authenticated as a different user")

// Manager enforces the Connected/Authenticated transitions described
// for the Connection Registry, consulting the Credential Store for
// the actual credential check.
type Manager struct {
	reg   *registry.Registry
	creds *credstore.Store
}

// New returns a Manager over reg and creds.
func New(reg *registry.Registry, creds *credstore.Store) *Manager {
	return &Manager{reg: reg, creds: creds}
}

// Authenticate attempts to bind handle to name. If handle is already
// Authenticated as name, this is a no-op success. If handle is already
// Authenticated as a different identity, it fails with
// ErrIdentityMismatch without touching registry state. Otherwise it
// checks cred against the credential store and, on success, binds the
// identity.
func (m *Manager) Authenticate(handle uint64, name, cred string) error {
	c, err := m.reg.FindByHandle(handle)
	if err != nil {
		return err
	}
	if c.Status == registry.StatusAuthenticated {
		if c.Username == name {
			return nil
		}
		return ErrIdentityMismatch
	}
	if !m.creds.Authenticate(name, cred) {
		return ErrWrongCredentials
	}
	u, err := m.creds.LookupByName(name)
	if err != nil {
		return ErrWrongCredentials
	}
	return m.reg.BindIdentity(handle, u.ID, name)
}

// Logout clears handle's bound identity. It is a no-op on a handle that
// is not currently Authenticated.
func (m *Manager) Logout(handle uint64) error {
	c, err := m.reg.FindByHandle(handle)
	if err != nil {
		return err
	}
	if c.Status != registry.StatusAuthenticated {
		return nil
	}
	return m.reg.UnbindIdentity(handle)
}

// IsAuthenticated reports whether handle currently holds a bound
// identity.
func (m *Manager) IsAuthenticated(handle uint64) bool {
	c, err := m.reg.FindByHandle(handle)
	if err != nil {
		return false
	}
	return c.Status == registry.StatusAuthenticated
}

// BoundUsername returns handle's bound username, or "" if not
// Authenticated.
func (m *Manager) BoundUsername(handle uint64) string {
	c, err := m.reg.FindByHandle(handle)
	if err != nil {
		return ""
	}
	return c.Username
}

// BoundUserID returns handle's bound user id, or 0 if not
// Authenticated.
func (m *Manager) BoundUserID(handle uint64) uint64 {
	c, err := m.reg.FindByHandle(handle)
	if err != nil {
		return 0
	}
	return c.UserID
}

// IsUserOnline reports whether some Authenticated Client is currently
// bound to name.
func (m *Manager) IsUserOnline(name string) bool {
	_, err := m.reg.FindByUsername(name)
	return err == nil
}

// OnlineUsers returns the usernames of every currently Authenticated
// Client.
func (m *Manager) OnlineUsers() []string {
	snap := m.reg.Snapshot()
	out := make([]string, 0, len(snap))
	for _, c := range snap {
		if c.Status == registry.StatusAuthenticated {
			out = append(out, c.Username)
		}
	}
	return out
}
