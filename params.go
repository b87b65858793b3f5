package blobpath

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ClientParams holds the constructor arguments for one scheme's default
// backend, e.g. {"region": "eu-west-1", "endpoint": "http://localhost:9000"}.
// Params are consumed lazily the first time the backend is built.
type ClientParams map[string]any

// ReadOnlyParam is the common param that wraps any backend in the
// read-only decorator.
const ReadOnlyParam = "read_only"

var validate = validator.New()

// Decode copies the params into a driver config struct using its
// mapstructure tags, then validates it against its validate tags.
// Unknown keys are ignored so common params can travel alongside.
func (p ClientParams) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(p)); err != nil {
		return fmt.Errorf("invalid client params: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ReadOnly reports whether the read_only param is set.
func (p ClientParams) ReadOnly() bool {
	switch v := p[ReadOnlyParam].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	default:
		return false
	}
}

// Clone returns a shallow copy of p.
func (p ClientParams) Clone() ClientParams {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid client params: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid client params: %s", strings.Join(msgs, "; "))
}
