package bus

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/models"
)

// Envelope is a request from the control client. Data holds the payload
// encoded for Type, which must be the one type the action accepts.
type Envelope struct {
	Action Action          `json:"action"`
	Type   DataType        `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Reply carries an action's result. A Null reply means the operation did
// not complete, whatever the reason.
type Reply struct {
	Type DataType        `json:"type"`
	Data json.RawMessage `json:"data"`
}

var jsonNull = json.RawMessage("null")

// NullReply is the reply for every failure.
func NullReply() *Reply {
	return &Reply{Type: TypeNull, Data: jsonNull}
}

// Encode builds an envelope for action. It fails with common.ErrTypeMismatch,
// and builds nothing, when typ is not the action's payload type or payload
// is not a Go value of that type.
func Encode(action Action, typ DataType, payload any) (*Envelope, error) {
	want, ok := PayloadType(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %d", common.ErrTypeMismatch, action)
	}
	if typ != want {
		return nil, fmt.Errorf("%w: %s takes %s, got %s", common.ErrTypeMismatch, action, want, typ)
	}
	data, err := encodeValue(typ, payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Action: action, Type: typ, Data: data}, nil
}

// Decode re-checks the action/type pairing and returns the concrete payload.
func Decode(env *Envelope) (any, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", common.ErrTypeMismatch)
	}
	want, ok := PayloadType(env.Action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %d", common.ErrTypeMismatch, env.Action)
	}
	if env.Type != want {
		return nil, fmt.Errorf("%w: %s takes %s, got %s", common.ErrTypeMismatch, env.Action, want, env.Type)
	}
	return decodeValue(env.Type, env.Data)
}

// EncodeReply wraps result as the action's result type; a nil result
// becomes a Null reply.
func EncodeReply(action Action, result any) (*Reply, error) {
	if result == nil {
		return NullReply(), nil
	}
	want, ok := ResultType(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %d", common.ErrTypeMismatch, action)
	}
	data, err := encodeValue(want, result)
	if err != nil {
		return nil, err
	}
	return &Reply{Type: want, Data: data}, nil
}

// DecodeReply returns the result carried by reply, or nil for a Null reply.
func DecodeReply(action Action, reply *Reply) (any, error) {
	if reply == nil || reply.Type == TypeNull {
		return nil, nil
	}
	want, ok := ResultType(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %d", common.ErrTypeMismatch, action)
	}
	if reply.Type != want {
		return nil, fmt.Errorf("%w: %s returns %s, got %s", common.ErrTypeMismatch, action, want, reply.Type)
	}
	return decodeValue(want, reply.Data)
}

// wireConfigEntry carries Value as an int array when IsArray is set and as
// a string otherwise.
type wireConfigEntry struct {
	Key     string          `json:"key"`
	IsEnc   bool            `json:"isEnc"`
	IsArray bool            `json:"isArray"`
	Value   json.RawMessage `json:"value"`
}

func mismatch(typ DataType, v any) error {
	return fmt.Errorf("%w: %T is not %s", common.ErrTypeMismatch, v, typ)
}

func encodeValue(typ DataType, v any) (json.RawMessage, error) {
	switch typ {
	case TypeNull:
		if v != nil {
			return nil, mismatch(typ, v)
		}
		return jsonNull, nil

	case TypeBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, mismatch(typ, v)
		}
		return encodeBinary(b)

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(typ, v)
		}
		return json.Marshal(s)

	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(typ, v)
		}
		return json.Marshal(b)

	case TypeConfigEntry:
		e, ok := v.(*models.ConfigEntry)
		if !ok || e == nil {
			return nil, mismatch(typ, v)
		}
		w := wireConfigEntry{Key: e.Key, IsEnc: e.IsEnc, IsArray: e.IsArray}
		var err error
		if e.IsArray {
			w.Value, err = encodeBinary(e.Bytes)
		} else {
			w.Value, err = json.Marshal(e.Text)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(w)

	case TypeUser:
		u, ok := v.(*models.User)
		if !ok || u == nil {
			return nil, mismatch(typ, v)
		}
		return json.Marshal(u)

	case TypeUserList:
		l, ok := v.([]models.User)
		if !ok {
			return nil, mismatch(typ, v)
		}
		if l == nil {
			l = []models.User{}
		}
		return json.Marshal(l)

	default:
		return nil, fmt.Errorf("%w: unknown type %d", common.ErrTypeMismatch, typ)
	}
}

func decodeValue(typ DataType, raw json.RawMessage) (any, error) {
	isNull := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)

	if typ == TypeNull {
		if !isNull {
			return nil, fmt.Errorf("%w: Null payload carries data", common.ErrTypeMismatch)
		}
		return nil, nil
	}
	if isNull {
		return nil, fmt.Errorf("%w: missing %s data", common.ErrTypeMismatch, typ)
	}

	switch typ {
	case TypeBinary:
		return decodeBinary(raw)

	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTypeMismatch, err)
		}
		return s, nil

	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTypeMismatch, err)
		}
		return b, nil

	case TypeConfigEntry:
		var w wireConfigEntry
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTypeMismatch, err)
		}
		e := &models.ConfigEntry{Key: w.Key, IsEnc: w.IsEnc, IsArray: w.IsArray}
		if w.IsArray {
			b, err := decodeBinary(w.Value)
			if err != nil {
				return nil, err
			}
			e.Bytes = b
		} else if err := json.Unmarshal(w.Value, &e.Text); err != nil {
			return nil, fmt.Errorf("%w: config value: %w", common.ErrTypeMismatch, err)
		}
		return e, nil

	case TypeUser:
		u := &models.User{}
		if err := strictUnmarshal(raw, u); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTypeMismatch, err)
		}
		return u, nil

	case TypeUserList:
		var l []models.User
		if err := strictUnmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrTypeMismatch, err)
		}
		return l, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %d", common.ErrTypeMismatch, typ)
	}
}

// encodeBinary writes b as a JSON array of byte values.
func encodeBinary(b []byte) (json.RawMessage, error) {
	ints := make([]int, len(b))
	for i, c := range b {
		ints[i] = int(c)
	}
	return json.Marshal(ints)
}

func decodeBinary(raw json.RawMessage) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("%w: binary: %w", common.ErrTypeMismatch, err)
	}
	b := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("%w: binary element %d out of range", common.ErrTypeMismatch, n)
		}
		b[i] = byte(n)
	}
	return b, nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
