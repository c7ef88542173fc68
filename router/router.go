/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package router dispatches MSG/BROADCAST/GROUP records to their
// recipients once the Command Handler has verified the sender's
// identity.
package router

import (
	"strings"

	"github.com/gravwell/chatrelay/codec"
	"github.com/gravwell/chatrelay/credstore"
	"github.com/gravwell/chatrelay/log"
	"github.com/gravwell/chatrelay/registry"
)

// Response codes shared with the Command Handler.
const (
	CodeOK          = 0
	CodeNotFound    = 1002
	CodeOffline     = 1003
	CodeGroupFull   = 1004
	CodeServerError = 5000
)

const broadcastTarget = "*"
const groupPrefix = "group:"

// Router owns no state of its own; it reads the registry snapshot and
// the credential store at dispatch time.
type Router struct {
	reg   *registry.Registry
	creds *credstore.Store
	lg    *log.Logger
}

// New returns a Router over reg and creds, logging dispatch failures
// through lg.
func New(reg *registry.Registry, creds *credstore.Store, lg *log.Logger) *Router {
	return &Router{reg: reg, creds: creds, lg: lg}
}

// Route dispatches rec, whose Type must be one of MSG, BROADCAST, or
// GROUP and whose Sender has already been verified by the caller to
// equal the authenticated identity of sourceHandle.
func (r *Router) Route(rec codec.Record, sourceHandle uint64) (int, error) {
	switch rec.Type {
	case codec.Msg:
		return r.routeDirect(rec)
	case codec.Broadcast:
		return r.routeBroadcast(rec, sourceHandle)
	case codec.Group:
		return CodeServerError, nil
	}
	return CodeServerError, nil
}

func (r *Router) routeDirect(rec codec.Record) (int, error) {
	if strings.HasPrefix(rec.Receiver, groupPrefix) || rec.Receiver == broadcastTarget {
		return CodeNotFound, nil
	}
	target, err := r.reg.FindByUsername(rec.Receiver)
	if err != nil {
		if r.creds.Exists(rec.Receiver) {
			return CodeOffline, nil
		}
		return CodeNotFound, nil
	}
	raw := codec.Serialize(rec)
	if err := target.WriteFrame(raw); err != nil {
		r.lg.Error("router: direct write failed", log.KV("receiver", rec.Receiver), log.KVErr(err))
		return CodeServerError, err
	}
	return CodeOK, nil
}

func (r *Router) routeBroadcast(rec codec.Record, sourceHandle uint64) (int, error) {
	raw := codec.Serialize(rec)
	delivered := 0
	for _, c := range r.reg.Snapshot() {
		if c.Handle == sourceHandle || c.Status != registry.StatusAuthenticated {
			continue
		}
		if err := c.WriteFrame(raw); err != nil {
			r.lg.Error("router: broadcast write failed", log.KV("to", c.Username), log.KVErr(err))
			continue
		}
		delivered++
	}
	// A BROADCAST from an authenticated sender with zero other online
	// recipients is still a fully successful send; there is simply
	// nothing to deliver to.
	return CodeOK, nil
}
