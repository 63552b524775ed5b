package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Answer is a single string or a list of strings. Which one is decided by the
// question type at submission time and never re-checked afterwards.
type Answer struct {
	values []string
	list   bool
}

// TextAnswer builds a single-string answer
func TextAnswer(s string) Answer {
	return Answer{values: []string{s}}
}

// ListAnswer builds a list answer
func ListAnswer(values ...string) Answer {
	return Answer{values: append([]string{}, values...), list: true}
}

// IsList reports whether the answer holds a list
func (a Answer) IsList() bool {
	return a.list
}

// Values returns every string held by the answer
func (a Answer) Values() []string {
	return a.values
}

// Text returns the single value, or the list joined with ", "
func (a Answer) Text() string {
	if !a.list {
		if len(a.values) == 0 {
			return ""
		}
		return a.values[0]
	}
	return strings.Join(a.values, ", ")
}

// IsEmpty reports whether the answer carries no non-blank value
func (a Answer) IsEmpty() bool {
	for _, v := range a.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.list {
		if a.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.values)
	}
	return json.Marshal(a.Text())
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Answer{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*a = ListAnswer(values...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("answer must be a string or a list of strings: %w", err)
		}
		*a = TextAnswer(s)
		return nil
	}
}

func (a Answer) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if a.list {
		values := a.values
		if values == nil {
			values = []string{}
		}
		return bson.MarshalValue(values)
	}
	return bson.MarshalValue(a.Text())
}

func (a *Answer) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*a = TextAnswer(raw.StringValue())
	case bsontype.Array:
		var values []string
		if err := raw.Unmarshal(&values); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*a = ListAnswer(values...)
	case bsontype.Null, bsontype.Undefined:
		*a = Answer{}
	default:
		return fmt.Errorf("unexpected answer type %s", t)
	}
	return nil
}

func normalizeOption(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
