/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package codec implements the escape-aware, pipe-delimited wire format
// shared by every chat client and the relay: one record per line,
// TYPE|SENDER|RECEIVER|TIMESTAMP|CONTENT\n.
package codec

import "time"

// Type is the record's TYPE tag.
type Type string

const (
	Login     Type = `LOGIN`
	Logout    Type = `LOGOUT`
	Msg       Type = `MSG`
	Broadcast Type = `BROADCAST`
	Group     Type = `GROUP`
	History   Type = `HISTORY`
	Status    Type = `STATUS`
	OK        Type = `OK`
	Error     Type = `ERROR`
)

// TimestampLayout is the wire format for the TIMESTAMP field.
const TimestampLayout = `2006-01-02 15:04:05`

func knownType(t Type) bool {
	switch t {
	case Login, Logout, Msg, Broadcast, Group, History, Status, OK, Error:
		return true
	}
	return false
}

// Record is a single parsed frame.
type Record struct {
	Type      Type
	Sender    string
	Receiver  string
	Timestamp string
	Content   string

	// MsgID is assigned by Parse; it has no meaning on a Record built for
	// Serialize by hand.
	MsgID uint64

	// Delivered is left false by Parse; the router does not set it
	// either.
	Delivered bool

	// TimestampSynthesized is true when Parse substituted the current
	// wall clock because TIMESTAMP was empty on the wire. See the
	// "auto-substituting the server timestamp" design note.
	TimestampSynthesized bool
}

// NewTimestamp formats t the way the wire protocol expects.
func NewTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
