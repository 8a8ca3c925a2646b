package bpgsql

import "strings"

// ParseDSN parses a libpq-style connection string of whitespace
// separated keyword=value pairs:
//
//	"keyword1=val1 keyword2='val2 with space' keyword3 = val3"
//
// Values may be single-quoted to contain spaces; there are no escape
// sequences inside quotes.  Spaces around '=' are ignored.  An empty
// string yields an empty map.
func ParseDSN(s string) map[string]string {
	result := map[string]string{}

	const (
		stKeyword = iota // reading a keyword
		stEquals         // just read '='
		stQuoted         // reading a single-quoted value
		stBare           // reading an unquoted value
	)
	state := stKeyword
	var keyword string
	var buf strings.Builder

	for _, ch := range strings.TrimSpace(s) {
		switch state {
		case stKeyword:
			if ch == '=' {
				keyword = strings.TrimSpace(buf.String())
				buf.Reset()
				state = stEquals
			} else {
				buf.WriteRune(ch)
			}
		case stEquals:
			if ch == '\'' {
				state = stQuoted
			} else if ch != ' ' {
				buf.WriteRune(ch)
				state = stBare
			}
		case stQuoted:
			if ch == '\'' {
				result[keyword] = buf.String()
				buf.Reset()
				state = stKeyword
			} else {
				buf.WriteRune(ch)
			}
		case stBare:
			if ch == ' ' {
				result[keyword] = buf.String()
				buf.Reset()
				state = stKeyword
			} else {
				buf.WriteRune(ch)
			}
		}
	}
	// input ran out while reading an unquoted value
	if state == stBare {
		result[keyword] = buf.String()
	}
	return result
}
