/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package codec

import (
	"strconv"
	"strings"
	"time"
)

// Serialize escapes each field of rec and joins them into a
// newline-terminated wire frame.
func Serialize(rec Record) string {
	var b strings.Builder
	b.WriteString(Escape(string(rec.Type)))
	b.WriteByte('|')
	b.WriteString(Escape(rec.Sender))
	b.WriteByte('|')
	b.WriteString(Escape(rec.Receiver))
	b.WriteByte('|')
	b.WriteString(Escape(rec.Timestamp))
	b.WriteByte('|')
	b.WriteString(Escape(rec.Content))
	b.WriteByte('\n')
	return b.String()
}

// SerializeResponse builds an OK/ERROR reply frame whose CONTENT is the
// load-bearing "code|message" pair. Parse keeps every unescaped '|'
// after the fourth separator inside CONTENT (see splitFields), so the
// separator between code and message must reach the wire as a literal,
// unescaped '|' for the client's own parser to merge it back into
// CONTENT. Passing it through
// Serialize's per-field Escape would backslash-escape that pipe like
// any other literal one, so this builds the frame directly instead;
// only the message text itself is escaped, for its own embedded
// '|'/'\'/newline bytes.
func SerializeResponse(kind Type, code int, text string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString("server")
	b.WriteByte('|')
	b.WriteString("client")
	b.WriteByte('|')
	b.WriteString(NewTimestamp(time.Now()))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(code))
	b.WriteByte('|')
	b.WriteString(Escape(text))
	b.WriteByte('\n')
	return b.String()
}
