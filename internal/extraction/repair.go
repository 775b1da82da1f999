package extraction

import (
	"bytes"
	"fmt"
	"strings"
)

const bom = "\ufeff"

// RepairJSON fixes the malformations generative services commonly emit:
// raw control characters inside string literals, trailing commas before a
// closing bracket, and a leading byte order mark. Bytes outside string
// literals are never rewritten except for dropped trailing commas.
func RepairJSON(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), bom)
	s = strings.ReplaceAll(s, bom, "")

	var out bytes.Buffer
	out.Grow(len(s) + 16)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				out.WriteByte(c)
			case c == '\\':
				escaped = true
				out.WriteByte(c)
			case c == '"':
				inString = false
				out.WriteByte(c)
			case c == '\n':
				out.WriteString(`\n`)
			case c == '\r':
				out.WriteString(`\r`)
			case c == '\t':
				out.WriteString(`\t`)
			case c < 0x20:
				fmt.Fprintf(&out, `\u%04x`, c)
			default:
				out.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			out.WriteByte(c)
		case ',':
			if next := nextSignificant(s, i+1); next == '}' || next == ']' {
				continue
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// nextSignificant returns the first non-whitespace byte at or after i, or 0.
func nextSignificant(s string, i int) byte {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}
