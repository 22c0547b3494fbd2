package record

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Persisted form: {"kind": "tape.write", "data": {...}}.

type decodeFunc func(decode func(any) error) (Record, error)

func decodeAs[T Record](decode func(any) error) (Record, error) {
	var r T
	if err := decode(&r); err != nil {
		return nil, err
	}
	return r, nil
}

var decoders = map[Kind]decodeFunc{
	KindCreateCryptex:  decodeAs[CreateCryptex],
	KindDestroyCryptex: decodeAs[DestroyCryptex],
	KindMoveCryptex:    decodeAs[MoveCryptex],
	KindRotateCryptex:  decodeAs[RotateCryptex],
	KindCreateTape:     decodeAs[CreateTape],
	KindDestroyTape:    decodeAs[DestroyTape],
	KindMoveTape:       decodeAs[MoveTape],
	KindWriteTape:      decodeAs[WriteTape],
	KindSetNote:        decodeAs[SetNote],
	KindSetBreakpoint:  decodeAs[SetBreakpoint],
	KindSetSequence:    decodeAs[SetSequence],
	KindCreateRoller:   decodeAs[CreateRoller],
	KindDestroyRoller:  decodeAs[DestroyRoller],
	KindMoveRoller:     decodeAs[MoveRoller],
	KindSetRollerColor: decodeAs[SetRollerColor],
	KindInsertFrame:    decodeAs[InsertFrame],
	KindRemoveFrame:    decodeAs[RemoveFrame],
	KindSetFrameMode:   decodeAs[SetFrameMode],
	KindCreateLabel:    decodeAs[CreateLabel],
	KindDestroyLabel:   decodeAs[DestroyLabel],
	KindMoveLabel:      decodeAs[MoveLabel],
	KindRenameLabel:    decodeAs[RenameLabel],
	KindSetLocks:       decodeAs[SetLocks],
}

func decodeKind(kind Kind, decode func(any) error) (Record, error) {
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	r, err := dec(decode)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return r, nil
}

type envelope struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Data Record `json:"data" yaml:"data"`
}

type jsonEnvelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type yamlEnvelope struct {
	Kind Kind      `yaml:"kind"`
	Data yaml.Node `yaml:"data"`
}

// List is an ordered sequence of records with a self-describing
// persisted form.
type List []Record

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]envelope, len(l))
	for i, r := range l {
		if r == nil {
			return nil, fmt.Errorf("record %d is nil", i)
		}
		out[i] = envelope{Kind: r.Kind(), Data: r}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []jsonEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for i, env := range raw {
		r, err := decodeKind(env.Kind, func(v any) error { return json.Unmarshal(env.Data, v) })
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l List) MarshalYAML() (any, error) {
	out := make([]envelope, len(l))
	for i, r := range l {
		if r == nil {
			return nil, fmt.Errorf("record %d is nil", i)
		}
		out[i] = envelope{Kind: r.Kind(), Data: r}
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List) UnmarshalYAML(value *yaml.Node) error {
	var raw []yamlEnvelope
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for i, env := range raw {
		r, err := decodeKind(env.Kind, env.Data.Decode)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

// Marshal encodes a single record as JSON.
func Marshal(r Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil record")
	}
	return json.Marshal(envelope{Kind: r.Kind(), Data: r})
}

// Unmarshal decodes a single JSON record.
func Unmarshal(data []byte) (Record, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return decodeKind(env.Kind, func(v any) error { return json.Unmarshal(env.Data, v) })
}
