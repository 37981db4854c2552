package skypedata

import (
	"html"
	"strings"
)

// BodyText renders a message's body_xml as plain text: markup tags are
// dropped, entities unescaped, element text kept. This is the default
// formatter used to build message comparison keys; richer display
// formatting is a concern of the consuming layer.
func BodyText(m *Message) string {
	return html.UnescapeString(stripTags(m.BodyXML))
}

func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	var quote rune
	for _, r := range s {
		switch {
		case inTag && quote != 0:
			if r == quote {
				quote = 0
			}
		case inTag:
			switch r {
			case '"', '\'':
				quote = r
			case '>':
				inTag = false
			}
		case r == '<':
			inTag = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
