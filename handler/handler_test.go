/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package handler

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/chatrelay/codec"
	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/log"
	"github.com/gravwell/chatrelay/registry"
	"github.com/gravwell/chatrelay/router"
	"github.com/gravwell/chatrelay/session"
)

type pipeConn struct {
	net.Conn
	buf []byte
}

func (p *pipeConn) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	return len(b), nil
}
func (p *pipeConn) Close() error { return nil }

type fixture struct {
	h     *Handler
	reg   *registry.Registry
	creds *credstore.Store
	sess  *session.Manager
	conn  *pipeConn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New()
	creds := credstore.New()
	creds.Add("alice", "alice123")
	creds.Add("bob", "bob123")
	sess := session.New(reg, creds)
	lg := log.NewDiscardLogger()
	rt := router.New(reg, creds, lg)
	cdc := codec.New()
	conn := &pipeConn{}
	reg.Add(100, conn, nil, 0)
	return &fixture{h: New(reg, creds, sess, rt, cdc, lg), reg: reg, creds: creds, sess: sess, conn: conn}
}

func lastReply(conn *pipeConn) string {
	frames := strings.Split(strings.TrimRight(string(conn.buf), "\n"), "\n")
	return frames[len(frames)-1]
}

func TestHandleLoginSuccess(t *testing.T) {
	f := newFixture(t)
	closed := f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	require.False(t, closed)
	require.Contains(t, lastReply(f.conn), "OK|server|client|")
	require.Contains(t, lastReply(f.conn), "0|Login successful")
	require.True(t, f.sess.IsAuthenticated(100))
}

func TestHandleLoginFailure(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|wrong`))
	require.Contains(t, lastReply(f.conn), "ERROR|server|client|")
	require.Contains(t, lastReply(f.conn), "1001|")
	require.False(t, f.sess.IsAuthenticated(100))
}

func TestHandleLogoutRequiresAuth(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGOUT|alice|server|2024-01-15 10:30:00|`))
	require.Contains(t, lastReply(f.conn), "1001|")
}

func TestHandleLogoutSuccess(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	f.h.HandleRaw(100, []byte(`LOGOUT|alice|server|2024-01-15 10:30:00|`))
	require.Contains(t, lastReply(f.conn), "OK|server|client|")
	require.False(t, f.sess.IsAuthenticated(100))
}

func TestHandleMsgSenderMismatch(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	f.h.HandleRaw(100, []byte(`MSG|bob|alice|2024-01-15 10:31:00|spoof`))
	require.Contains(t, lastReply(f.conn), "1001|")
	require.True(t, f.sess.IsAuthenticated(100)) // session remains Authenticated
}

func TestHandleMsgOfflineRecipient(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	f.h.HandleRaw(100, []byte(`MSG|alice|bob|2024-01-15 10:31:00|hi`))
	require.Contains(t, lastReply(f.conn), "1003|")
}

func TestHandleHistoryStub(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	f.h.HandleRaw(100, []byte(`HISTORY|alice|server|2024-01-15 10:31:00|bob||`))
	require.Contains(t, lastReply(f.conn), "5000|")
}

func TestHandleStatus(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`LOGIN|alice|server|2024-01-15 10:30:00|alice123`))
	f.h.HandleRaw(100, []byte(`STATUS|alice|server|2024-01-15 10:31:00|`))
	reply := lastReply(f.conn)
	require.Contains(t, reply, "OK|server|client|")
	require.Contains(t, reply, "connected=1")
	require.Contains(t, reply, "authenticated=1")
	require.Contains(t, reply, "registered=2")
}

func TestHandleUnknownTypeRejectedAtParse(t *testing.T) {
	f := newFixture(t)
	f.h.HandleRaw(100, []byte(`NOPE|a|b|c|d`))
	require.Contains(t, lastReply(f.conn), "5000|")
}

func TestHandleResponseFramesIgnored(t *testing.T) {
	f := newFixture(t)
	closed := f.h.HandleRaw(100, []byte(`OK|client|server|2024-01-15 10:30:00|0|ack`))
	require.False(t, closed)
	require.Empty(t, f.conn.buf)
}
