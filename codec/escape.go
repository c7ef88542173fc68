/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package codec

import "strings"

// Escape makes a field safe to place between '|' separators: the literal
// bytes '|', '\' and newline are replaced with the two-character escapes
// `\|`, `\\` and `\n`. Unescape is the left-inverse of Escape.
func Escape(field string) string {
	if !strings.ContainsAny(field, "|\\\n") {
		return field
	}
	var b strings.Builder
	b.Grow(len(field) + 8)
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(field[i])
		}
	}
	return b.String()
}

// Unescape reverses Escape. An unrecognized escape sequence (backslash
// followed by anything other than '\', '|' or 'n') decodes to the
// backslash and the literal following character, per the wire spec. A
// trailing lone backslash is passed through unchanged; callers that need
// to reject that condition should run Validate first.
func Unescape(field string) string {
	if !strings.Contains(field, `\`) {
		return field
	}
	var b strings.Builder
	b.Grow(len(field))
	n := len(field)
	for i := 0; i < n; i++ {
		c := field[i]
		if c == '\\' && i+1 < n {
			switch field[i+1] {
			case '\\':
				b.WriteByte('\\')
			case '|':
				b.WriteByte('|')
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte('\\')
				b.WriteByte(field[i+1])
			}
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
