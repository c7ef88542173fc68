/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package credstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAndAuthenticate(t *testing.T) {
	s := New()
	u, err := s.Add("alice", "alice123")
	require.NoError(t, err)
	require.Equal(t, uint64(firstUserID), u.ID)
	require.True(t, s.Authenticate("alice", "alice123"))
	require.False(t, s.Authenticate("alice", "wrong"))
	require.False(t, s.Authenticate("bob", "anything"))
}

func TestAddDuplicateRejected(t *testing.T) {
	s := New()
	_, err := s.Add("alice", "x")
	require.NoError(t, err)
	_, err = s.Add("alice", "y")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestAddBadUsernameRejected(t *testing.T) {
	s := New()
	cases := []string{"", "has space", "way-too-long-a-name-for-the-regex-to-allow-1234567890", "bad!name"}
	for _, c := range cases {
		_, err := s.Add(c, "x")
		require.ErrorIs(t, err, ErrBadUsername, "username %q", c)
	}
}

func TestIDsMonotonicAndFloored(t *testing.T) {
	s := New()
	a, _ := s.Add("alice", "x")
	b, _ := s.Add("bob", "y")
	require.GreaterOrEqual(t, a.ID, uint64(1000))
	require.Greater(t, b.ID, a.ID)
}

func TestLookups(t *testing.T) {
	s := New()
	u, _ := s.Add("alice", "x")
	got, err := s.LookupByName("alice")
	require.NoError(t, err)
	require.Equal(t, u, got)

	got, err = s.LookupByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, u, got)

	_, err = s.LookupByName("zzz")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.LookupByID(999999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExistsAndCount(t *testing.T) {
	s := New()
	require.False(t, s.Exists("alice"))
	require.Equal(t, 0, s.Count())
	s.Add("alice", "x")
	require.True(t, s.Exists("alice"))
	require.Equal(t, 1, s.Count())
}

func TestAuthenticateInactiveUserFails(t *testing.T) {
	s := New()
	u, _ := s.Add("alice", "x")
	s.mtx.Lock()
	s.byName[u.Username].Active = false
	s.mtx.Unlock()
	require.False(t, s.Authenticate("alice", "x"))
}
