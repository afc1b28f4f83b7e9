package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrNewlineValue = errors.New("field value contains newline")
)

// Field is a single key-value pair of a message. Keys are stored
// lower-case; Encode emits them upper-case.
type Field struct {
	Key   string
	Value string
}

// Message is an ordered sequence of fields. Order matters only on the
// wire (messages are compared by content, not field order), but encoding
// preserves insertion order so datagrams look the same as the ones other
// LSNP implementations produce.
type Message struct {
	fields []Field
}

// NewMessage creates a message of the given type.
func NewMessage(msgType string) *Message {
	m := &Message{}
	m.Set(FieldType, msgType)
	return m
}

// Set appends or replaces a field. The key is normalized to lower-case.
func (m *Message) Set(key, value string) *Message {
	key = strings.ToLower(key)
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields[i].Value = value
			return m
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: value})
	return m
}

// Get returns the value for key, or "" if the field is absent.
func (m *Message) Get(key string) string {
	key = strings.ToLower(key)
	for i := range m.fields {
		if m.fields[i].Key == key {
			return m.fields[i].Value
		}
	}
	return ""
}

// Has reports whether the field is present.
func (m *Message) Has(key string) bool {
	key = strings.ToLower(key)
	for i := range m.fields {
		if m.fields[i].Key == key {
			return true
		}
	}
	return false
}

// GetInt returns the integer value of a field, or def when absent or
// unparsable.
func (m *Message) GetInt(key string, def int64) int64 {
	v := m.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// Type returns the message type field, upper-cased.
func (m *Message) Type() string {
	return strings.ToUpper(m.Get(FieldType))
}

// Fields returns a snapshot of the fields in wire order.
func (m *Message) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Encode serializes the message to its wire form: one "KEY: value" line
// per field and a blank line terminator. Values containing newlines are
// rejected; the format has no escaping.
func (m *Message) Encode() ([]byte, error) {
	var b strings.Builder
	for _, f := range m.fields {
		if strings.ContainsAny(f.Value, "\n\r") {
			return nil, fmt.Errorf("%w: %s", ErrNewlineValue, f.Key)
		}
		b.WriteString(strings.ToUpper(f.Key))
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Decode parses a datagram into a message. Lines without a ": "
// separator are skipped. Decoding never fails: malformed input yields an
// empty or partial message, and callers treat missing keys as absent
// fields.
func Decode(data []byte) *Message {
	m := &Message{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		m.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return m
}

// Validate checks that the message carries every field its type
// requires. Unknown types pass.
func (m *Message) Validate() error {
	for _, key := range requiredFields[m.Type()] {
		if !m.Has(key) {
			return fmt.Errorf("%w: %s %s", ErrMissingField, m.Type(), key)
		}
	}
	return nil
}

// Expired reports whether the message's TTL has lapsed. The TTL field is
// an absolute expiry in epoch seconds; messages without one never expire.
func (m *Message) Expired(now time.Time) bool {
	if !m.Has(FieldTTL) {
		return false
	}
	expiry := m.GetInt(FieldTTL, 0)
	if expiry == 0 {
		return true
	}
	return now.Unix() > expiry
}
