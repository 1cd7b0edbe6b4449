package document

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// MarshalJSON renders the native JSON form of the value, so documents embedded
// in notification payloads look like the documents that produced them.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.I64)
	case KindFloat:
		return json.Marshal(v.F64)
	case KindString:
		return json.Marshal(v.S)
	case KindBool:
		return json.Marshal(v.B)
	case KindArray:
		return json.Marshal(v.A)
	case KindObject:
		return json.Marshal(v.O)
	default:
		return nil, fmt.Errorf("document: cannot marshal value of kind %d", v.Kind)
	}
}

// UnmarshalJSON parses any JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
