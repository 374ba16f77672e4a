package apiclient

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Validator parses an untyped JSON-shaped value into T or reports why it
// does not conform.
type Validator[T any] interface {
	Parse(input any) (T, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(input any) (T, error)

// Parse calls f(input).
func (f ValidatorFunc[T]) Parse(input any) (T, error) { return f(input) }

// ValidationError describes a schema mismatch.
type ValidationError struct {
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StructSchema decodes values into T using json field names.
type StructSchema[T any] struct {
	allowUnknown bool
	checks       []func(T) error
}

// Struct returns a schema for T. Unknown keys are rejected; each check runs
// after decoding.
func Struct[T any](checks ...func(T) error) StructSchema[T] {
	return StructSchema[T]{checks: checks}
}

// AllowUnknown returns a copy of the schema that ignores unknown keys.
func (s StructSchema[T]) AllowUnknown() StructSchema[T] {
	s.allowUnknown = true
	return s
}

// Parse implements Validator.
func (s StructSchema[T]) Parse(input any) (T, error) {
	var out T
	if input == nil {
		return out, &ValidationError{Detail: fmt.Sprintf("expected %T, received nothing", out)}
	}
	if err := decodeInto(input, &out, !s.allowUnknown); err != nil {
		return out, &ValidationError{Detail: fmt.Sprintf("decode %T", out), Err: err}
	}
	for _, check := range s.checks {
		if err := check(out); err != nil {
			return out, &ValidationError{Detail: "check failed", Err: err}
		}
	}
	return out, nil
}

func decodeInto(input, out any, errorUnused bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: errorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// toParams flattens a parsed params value back into Params.
func toParams(v any) (Params, error) {
	if p, ok := v.(Params); ok {
		return p, nil
	}
	if m, ok := v.(map[string]any); ok {
		return Params(m), nil
	}
	out := map[string]any{}
	if err := decodeInto(v, &out, false); err != nil {
		return nil, err
	}
	return Params(out), nil
}

// parseFunc erases the type parameter of a Validator.
type parseFunc func(any) (any, error)

func erase[T any](v Validator[T]) parseFunc {
	if v == nil {
		return nil
	}
	return func(in any) (any, error) { return v.Parse(in) }
}
