package llm

import (
	"bytes"
	"encoding/json"
)

// partialJSON accumulates streamed JSON text and turns each prefix into the
// longest document that parses once its open strings and containers are closed.
type partialJSON struct {
	buf  []byte
	last []byte
}

// Append adds a delta and returns the new snapshot, if it differs from the previous one.
func (p *partialJSON) Append(delta string) ([]byte, bool) {
	p.buf = append(p.buf, delta...)
	snap, ok := repairJSON(p.buf)
	if !ok || bytes.Equal(snap, p.last) {
		return nil, false
	}
	p.last = snap
	return snap, true
}

// Final validates the complete buffer. It returns the document and whether it
// differs from the last snapshot handed out.
func (p *partialJSON) Final() ([]byte, bool, error) {
	doc := bytes.TrimSpace(p.buf)
	if !json.Valid(doc) {
		return nil, false, ErrMalformedJSON
	}
	if bytes.Equal(doc, p.last) {
		return doc, false, nil
	}
	p.last = doc
	return doc, true, nil
}

// repairJSON finds the longest prefix of buf that closes into valid JSON.
func repairJSON(buf []byte) ([]byte, bool) {
	start := bytes.IndexAny(buf, "{[")
	if start < 0 {
		return nil, false
	}
	for cut := len(buf); cut > start; cut-- {
		candidate := closeJSON(buf[start:cut])
		if json.Valid(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

// closeJSON terminates an open string, drops a dangling comma, fills a dangling
// colon with null, and closes every open container. The result may still be
// invalid (half-typed keys or literals); the caller then tries a shorter prefix.
func closeJSON(b []byte) []byte {
	var stack []byte
	inString, escaped := false, false
	for _, c := range b {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := make([]byte, 0, len(b)+len(stack)+5)
	out = append(out, b...)
	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
	} else {
		out = bytes.TrimRight(out, " \t\r\n")
		if n := len(out); n > 0 {
			switch out[n-1] {
			case ',':
				out = out[:n-1]
			case ':':
				out = append(out, "null"...)
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i])
	}
	return out
}
