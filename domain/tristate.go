package domain

import (
	"bytes"
	"fmt"
)

// TriState is a nullable boolean. The zero value is Unknown.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// FromNullable converts a nullable store column.
func FromNullable(b *bool) TriState {
	if b == nil {
		return Unknown
	}
	if *b {
		return True
	}
	return False
}

// FromBool converts a known value.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Ptr returns nil for Unknown.
func (t TriState) Ptr() *bool {
	switch t {
	case True:
		v := true
		return &v
	case False:
		v := false
		return &v
	default:
		return nil
	}
}

// Known reports whether the value is True or False.
func (t TriState) Known() bool {
	return t == True || t == False
}

// IsTrue reports a definite true. Unknown is not true.
func (t TriState) IsTrue() bool {
	return t == True
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *TriState) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "null":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value %s", data)
	}
	return nil
}
