/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/registry"
)

func newTestManager(t *testing.T) (*Manager, *registry.Registry, *credstore.Store) {
	t.Helper()
	reg := registry.New()
	creds := credstore.New()
	_, err := creds.Add("alice", "alice123")
	require.NoError(t, err)
	return New(reg, creds), reg, creds
}

func TestAuthenticateSuccess(t *testing.T) {
	m, reg, _ := newTestManager(t)
	reg.Add(100, nil, nil, 0)
	require.NoError(t, m.Authenticate(100, "alice", "alice123"))
	require.True(t, m.IsAuthenticated(100))
	require.Equal(t, "alice", m.BoundUsername(100))
	require.True(t, m.IsUserOnline("alice"))
}

func TestAuthenticateWrongCredential(t *testing.T) {
	m, reg, _ := newTestManager(t)
	reg.Add(100, nil, nil, 0)
	err := m.Authenticate(100, "alice", "wrong")
	require.ErrorIs(t, err, ErrWrongCredentials)
	require.False(t, m.IsAuthenticated(100))
}

func TestAuthenticateIdempotentSameIdentity(t *testing.T) {
	m, reg, _ := newTestManager(t)
	reg.Add(100, nil, nil, 0)
	require.NoError(t, m.Authenticate(100, "alice", "alice123"))
	require.NoError(t, m.Authenticate(100, "alice", "alice123"))
}

func TestAuthenticateDifferentIdentityRejected(t *testing.T) {
	m, reg, creds := newTestManager(t)
	creds.Add("bob", "bob123")
	reg.Add(100, nil, nil, 0)
	require.NoError(t, m.Authenticate(100, "alice", "alice123"))
	err := m.Authenticate(100, "bob", "bob123")
	require.ErrorIs(t, err, ErrIdentityMismatch)
	require.Equal(t, "alice", m.BoundUsername(100))
}

func TestLogoutIsNoOpOnConnected(t *testing.T) {
	m, reg, _ := newTestManager(t)
	reg.Add(100, nil, nil, 0)
	require.NoError(t, m.Logout(100))
	require.False(t, m.IsAuthenticated(100))
}

func TestLogoutClearsIdentity(t *testing.T) {
	m, reg, _ := newTestManager(t)
	reg.Add(100, nil, nil, 0)
	m.Authenticate(100, "alice", "alice123")
	require.NoError(t, m.Logout(100))
	require.False(t, m.IsAuthenticated(100))
	require.False(t, m.IsUserOnline("alice"))
}

func TestOnlineUsersSnapshot(t *testing.T) {
	m, reg, creds := newTestManager(t)
	creds.Add("bob", "bob123")
	reg.Add(100, nil, nil, 0)
	reg.Add(101, nil, nil, 0)
	m.Authenticate(100, "alice", "alice123")
	m.Authenticate(101, "bob", "bob123")
	require.ElementsMatch(t, []string{"alice", "bob"}, m.OnlineUsers())
}
