// Package validation implements the request-field validation protocol shared
// by every mutating endpoint and the MQTT ingest path.
//
// A payload is first decoded into a Payload (rejecting anything that is not
// a single JSON object), then checked against a Spec in two phases: presence
// of every required field in declaration order, and only when all are present,
// the primitive kind of each field in the same order.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sort"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

// Kind is the primitive JSON type a field must carry.
type Kind int

const (
	// String requires a JSON string
	String Kind = iota

	// Integer requires a JSON number without fraction or exponent
	Integer

	// Float requires any JSON number
	Float
)

// String returns the name used in error messages.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Spec is the declarative description of a payload: an ordered list of
// required field names and the expected kind of each field.
type Spec struct {
	Required []string
	Types    map[string]Kind
}

// Payload is a decoded JSON object. Numbers are kept as json.Number so that
// integers and floats can be told apart.
type Payload map[string]any

// Decode reads a single JSON object from r. Empty bodies, invalid JSON,
// non-object values and trailing data all yield a MALFORMED_PAYLOAD error.
func Decode(r io.Reader) (Payload, error) {
	if r == nil {
		return nil, malformed(nil)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, malformed(err)
	}

	return DecodeBytes(data)
}

// DecodeBytes is Decode for an in-memory body.
func DecodeBytes(data []byte) (Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, malformed(err)
	}

	if payload == nil {
		return nil, malformed(nil)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(errors.New("unexpected data after JSON object"))
	}

	return Payload(payload), nil
}

func malformed(cause error) error {
	e := domain.NewError(domain.CodeMalformedPayload, "Payload is not a well-formed JSON object")
	if cause != nil {
		e.WithCause(cause)
	}

	return e
}

// Validate checks p against spec. Presence of all required fields is checked
// before any type check; the first missing field wins over any type error.
func Validate(p Payload, spec Spec) error {
	for _, name := range spec.Required {
		if _, ok := p[name]; !ok {
			return domain.NewError(domain.CodeMissingField, "Field '%s' is missing", name)
		}
	}

	for _, name := range spec.typeOrder() {
		value, ok := p[name]
		if !ok {
			continue
		}

		kind := spec.Types[name]
		if !matches(value, kind) {
			return domain.NewError(domain.CodeTypeMismatch, "Field '%s' must be of type %s", name, kind)
		}
	}

	return nil
}

// typeOrder lists typed fields in required order, followed by optional typed
// fields sorted by name.
func (s Spec) typeOrder() []string {
	order := make([]string, 0, len(s.Types))
	seen := make(map[string]bool, len(s.Required))

	for _, name := range s.Required {
		seen[name] = true

		if _, ok := s.Types[name]; ok {
			order = append(order, name)
		}
	}

	var optional []string
	for name := range s.Types {
		if !seen[name] {
			optional = append(optional, name)
		}
	}

	sort.Strings(optional)

	return append(order, optional...)
}

func matches(value any, kind Kind) bool {
	switch kind {
	case String:
		_, ok := value.(string)
		return ok
	case Integer:
		n, ok := value.(json.Number)
		if !ok {
			return false
		}

		_, err := n.Int64()

		return err == nil
	case Float:
		n, ok := value.(json.Number)
		if !ok {
			return false
		}

		_, err := n.Float64()

		return err == nil
	default:
		return false
	}
}

// String returns the string field name. It must only be called after Validate.
func (p Payload) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Int returns the integer field name. It must only be called after Validate.
func (p Payload) Int(name string) int64 {
	n, _ := p[name].(json.Number)
	v, _ := n.Int64()

	return v
}

// Float returns the float field name. It must only be called after Validate.
func (p Payload) Float(name string) float64 {
	n, _ := p[name].(json.Number)
	v, _ := n.Float64()

	return v
}
