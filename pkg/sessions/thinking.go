package sessions

import "strings"

// Assistant thinking is stored inline in message content as
// "[Thinking: ...]" blocks interleaved with regular text. These helpers
// convert between that flat form and ordered segments.

const thinkingPrefix = "[Thinking: "

// Segment is one ordered piece of message content.
type Segment struct {
	Thinking bool
	Text     string
}

// SplitContent splits message content into ordered text and thinking
// segments. Content without a thinking marker yields a single text segment.
func SplitContent(content string) []Segment {
	var segments []Segment
	rest := content

	for {
		idx := strings.Index(rest, thinkingPrefix)
		if idx == -1 {
			break
		}

		body, after, ok := matchClosingBracket(rest[idx+len(thinkingPrefix):])
		if !ok {
			// Unterminated marker, treat the remainder as plain text.
			break
		}

		if text := strings.TrimSpace(rest[:idx]); text != "" {
			segments = append(segments, Segment{Text: text})
		}
		segments = append(segments, Segment{Thinking: true, Text: body})
		rest = after
	}

	if text := strings.TrimSpace(rest); text != "" {
		segments = append(segments, Segment{Text: text})
	}
	return segments
}

// JoinContent is the inverse of SplitContent: thinking segments are wrapped
// in the marker, segments are separated by blank lines.
func JoinContent(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Thinking {
			parts = append(parts, thinkingPrefix+seg.Text+"]")
		} else {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// matchClosingBracket finds the bracket closing an already-opened marker,
// tolerating balanced brackets inside the body.
func matchClosingBracket(s string) (body, rest string, ok bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}
