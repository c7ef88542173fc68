/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package registry

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFindRemove(t *testing.T) {
	r := New()
	c := r.Add(100, nil, net.ParseIP("127.0.0.1"), 5555)
	require.Equal(t, StatusConnected, c.Status)
	require.Equal(t, uint64(1), c.ID)

	got, err := r.FindByHandle(100)
	require.NoError(t, err)
	require.Equal(t, c, got)

	r.Remove(100)
	_, err = r.FindByHandle(100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddIdempotentOnDuplicateHandle(t *testing.T) {
	r := New()
	a := r.Add(100, nil, nil, 0)
	b := r.Add(100, nil, nil, 0)
	require.Same(t, a, b)
	require.Equal(t, 1, r.Count())
}

func TestRemoveIdempotent(t *testing.T) {
	r := New()
	r.Remove(999) // never added; must not panic
	r.Add(100, nil, nil, 0)
	r.Remove(100)
	r.Remove(100)
	require.Equal(t, 0, r.Count())
}

func TestBindIdentityEnforcesSingleAuthenticatedPerUsername(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	r.Add(101, nil, nil, 0)

	require.NoError(t, r.BindIdentity(100, 1000, "alice"))
	err := r.BindIdentity(101, 1001, "alice")
	require.ErrorIs(t, err, ErrUsernameOnline)

	c, _ := r.FindByHandle(100)
	require.Equal(t, StatusAuthenticated, c.Status)
	found, err := r.FindByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(100), found.Handle)
}

func TestBindIdentitySameHandleIdempotent(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	require.NoError(t, r.BindIdentity(100, 1000, "alice"))
	require.NoError(t, r.BindIdentity(100, 1000, "alice"))
}

func TestUnbindIdentityReturnsToConnected(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	r.BindIdentity(100, 1000, "alice")
	require.NoError(t, r.UnbindIdentity(100))
	c, _ := r.FindByHandle(100)
	require.Equal(t, StatusConnected, c.Status)
	require.Equal(t, "", c.Username)
	_, err := r.FindByUsername("alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByUserID(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	r.BindIdentity(100, 1000, "alice")
	c, err := r.FindByUserID(1000)
	require.NoError(t, err)
	require.Equal(t, uint64(100), c.Handle)

	_, err = r.FindByUserID(9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotIndependentOfMutation(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	r.Add(101, nil, nil, 0)
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	r.Remove(100)
	require.Equal(t, 1, r.Count())
	require.Len(t, snap, 2) // slice captured before the removal is untouched
}

func TestCountNeverNegative(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.Remove(uint64(i))
	}
	require.GreaterOrEqual(t, r.Count(), 0)
}

func TestAuthenticatedCount(t *testing.T) {
	r := New()
	r.Add(100, nil, nil, 0)
	r.Add(101, nil, nil, 0)
	require.Equal(t, 0, r.AuthenticatedCount())
	r.BindIdentity(100, 1000, "alice")
	require.Equal(t, 1, r.AuthenticatedCount())
}

func TestTouchUpdatesLastActive(t *testing.T) {
	r := New()
	c := r.Add(100, nil, nil, 0)
	before := c.LastActive
	r.Touch(100)
	c2, _ := r.FindByHandle(100)
	require.False(t, c2.LastActive.Before(before))
}
