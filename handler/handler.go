/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package handler implements the per-frame command dispatch that sits
// between the event loop and the Session Manager / Router.
package handler

import (
	"fmt"

	"github.com/gravwell/chatrelay/codec"
	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/log"
	"github.com/gravwell/chatrelay/registry"
	"github.com/gravwell/chatrelay/router"
	"github.com/gravwell/chatrelay/session"
)

// Response codes and reply texts used by the handler; codeOK and
// codeServerError carry the same values as router's CodeOK and
// CodeServerError.
const (
	codeOK             = 0
	codeAuthFailed     = 1001
	codeServerError    = 5000
	msgParseFailed     = "Failed to parse message"
	msgLoginOK         = "Login successful"
	msgLoginFailed     = "Authentication failed"
	msgNotAuthed       = "Not authenticated"
	msgSenderMismatch  = "Sender mismatch"
	msgHistoryStub     = "History is not implemented yet"
	msgUnknownTypeStub = "Unrecognized record type"
)

// Handler is the Command Handler: it owns no connection state itself,
// only the collaborators needed to classify and act on a parsed
// Record.
type Handler struct {
	reg     *registry.Registry
	creds   *credstore.Store
	session *session.Manager
	router  *router.Router
	codec   *codec.Codec
	lg      *log.Logger
}

// New returns a Handler wired to the given collaborators.
func New(reg *registry.Registry, creds *credstore.Store, sess *session.Manager, rt *router.Router, cdc *codec.Codec, lg *log.Logger) *Handler {
	return &Handler{reg: reg, creds: creds, session: sess, router: rt, codec: cdc, lg: lg}
}

// HandleRaw parses raw as a single frame from handle's connection and
// dispatches it, producing a reply for every record except OK/ERROR
// frames sent by the client, which are ignored. It returns true if writing
// the reply failed, signaling to the caller that the connection should
// be scheduled for removal at the next event-loop tick.
func (h *Handler) HandleRaw(handle uint64, raw []byte) bool {
	rec, err := h.codec.Parse(string(raw))
	if err != nil {
		return h.sendResponse(handle, codeServerError, codec.Error, msgParseFailed)
	}

	switch rec.Type {
	case codec.Login:
		return h.handleLogin(handle, rec)
	case codec.Logout:
		return h.handleLogout(handle)
	case codec.Msg, codec.Broadcast, codec.Group:
		return h.handleRouted(handle, rec)
	case codec.History:
		return h.handleHistory(handle)
	case codec.Status:
		return h.handleStatus(handle)
	case codec.OK, codec.Error:
		return false // server never acts on responses sent by a client
	}
	return h.sendResponse(handle, codeServerError, codec.Error, msgUnknownTypeStub)
}

func (h *Handler) handleLogin(handle uint64, rec codec.Record) bool {
	if err := h.session.Authenticate(handle, rec.Sender, rec.Content); err != nil {
		h.lg.Info("login failed", log.KV("user", rec.Sender))
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgLoginFailed)
	}
	return h.sendResponse(handle, codeOK, codec.OK, msgLoginOK)
}

func (h *Handler) handleLogout(handle uint64) bool {
	if !h.session.IsAuthenticated(handle) {
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgNotAuthed)
	}
	h.session.Logout(handle)
	return h.sendResponse(handle, codeOK, codec.OK, "Logout successful")
}

func (h *Handler) handleRouted(handle uint64, rec codec.Record) bool {
	if !h.session.IsAuthenticated(handle) {
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgNotAuthed)
	}
	if rec.Sender != h.session.BoundUsername(handle) {
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgSenderMismatch)
	}
	code, _ := h.router.Route(rec, handle)
	if code == codeOK {
		return h.sendResponse(handle, codeOK, codec.OK, "Delivered")
	}
	return h.sendResponse(handle, code, codec.Error, routerErrorMessage(code))
}

func (h *Handler) handleHistory(handle uint64) bool {
	if !h.session.IsAuthenticated(handle) {
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgNotAuthed)
	}
	return h.sendResponse(handle, codeServerError, codec.Error, msgHistoryStub)
}

func (h *Handler) handleStatus(handle uint64) bool {
	if !h.session.IsAuthenticated(handle) {
		return h.sendResponse(handle, codeAuthFailed, codec.Error, msgNotAuthed)
	}
	msg := fmt.Sprintf(
		"connected=%d authenticated=%d registered=%d status=%s",
		h.reg.Count(), h.reg.AuthenticatedCount(), h.creds.Count(), registry.StatusAuthenticated,
	)
	return h.sendResponse(handle, codeOK, codec.OK, msg)
}

// sendResponse builds and writes a response frame to handle's
// connection, invoking the codec the same way every other reply path
// does. It returns true if the write failed.
func (h *Handler) sendResponse(handle uint64, code int, kind codec.Type, text string) bool {
	c, err := h.reg.FindByHandle(handle)
	if err != nil {
		return true
	}
	raw := codec.SerializeResponse(kind, code, text)
	if err := c.WriteFrame(raw); err != nil {
		h.lg.Error("handler: failed to write response", log.KV("handle", handle), log.KVErr(err))
		return true
	}
	return false
}

func routerErrorMessage(code int) string {
	switch code {
	case router.CodeNotFound:
		return "User not found"
	case router.CodeOffline:
		return "User is offline"
	case router.CodeGroupFull:
		return "Group is full"
	case router.CodeServerError:
		return "Groups are not implemented yet"
	}
	return "Server error"
}
