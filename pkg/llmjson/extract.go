// Package llmjson pulls JSON out of free-form model output.
package llmjson

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FirstObject returns the first well-formed JSON object embedded in text.
// Prose, markdown fences and trailing commentary around it are ignored.
func FirstObject(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		j := strings.IndexByte(text[i:], '{')
		if j < 0 {
			return nil, false
		}
		i += j
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return raw, true
		}
	}
	return nil, false
}

// Kind is the JSON type of a raw value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

func KindOf(raw json.RawMessage) Kind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return KindInvalid
	}
	switch c := raw[0]; {
	case c == '{':
		return KindObject
	case c == '[':
		return KindArray
	case c == '"':
		return KindString
	case c == 'n':
		return KindNull
	case c == 't' || c == 'f':
		return KindBool
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	}
	return KindInvalid
}
