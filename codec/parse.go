/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package codec

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ParseError is returned by Codec.Parse for any framing or validation
// failure; the caller only needs the stable ERROR 5000 behavior spec.md
// mandates, but the reason is kept for logging.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("codec: %s", e.Reason)
}

// Codec turns raw frames into Records and back. The zero value is not
// usable; construct one with New so the message-id counter starts at the
// spec-mandated floor.
type Codec struct {
	nextID uint64 // atomic, pre-incremented so the first id is 100
}

// New returns a Codec whose first parsed Record carries message-id 100.
func New() *Codec {
	return &Codec{nextID: 99}
}

// Parse validates raw, splits it into the five wire fields, unescapes
// each one, and assigns a fresh monotonic message-id. If TIMESTAMP is
// empty the current wall-clock time is substituted and
// Record.TimestampSynthesized is set.
func (c *Codec) Parse(raw string) (Record, error) {
	if len(raw) < minFrameLen || len(raw) > maxFrameLen {
		return Record{}, &ParseError{Reason: "frame length out of bounds"}
	}
	fields, err := splitFields(raw)
	if err != nil {
		return Record{}, &ParseError{Reason: err.Error()}
	}
	if len(fields) < numFields {
		return Record{}, &ParseError{Reason: "not enough fields"}
	}

	typ := Type(Unescape(fields[0]))
	if !knownType(typ) {
		return Record{}, &ParseError{Reason: "unknown record type " + string(typ)}
	}

	rec := Record{
		Type:     typ,
		Sender:   Unescape(fields[1]),
		Receiver: Unescape(fields[2]),
		Content:  Unescape(fields[4]),
	}
	ts := Unescape(fields[3])
	if ts == `` {
		ts = NewTimestamp(time.Now())
		rec.TimestampSynthesized = true
	}
	rec.Timestamp = ts
	rec.MsgID = atomic.AddUint64(&c.nextID, 1)
	return rec, nil
}
