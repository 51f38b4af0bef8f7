// Package validation checks configuration and request structs against
// go-playground/validator tags:
//
//	type Config struct {
//	    APIKey           string  `mapstructure:"api_key" validate:"required"`
//	    MaxChunkDuration float64 `mapstructure:"max_chunk_duration" validate:"gt=0,lte=30"`
//	}
//	err := validation.Validate(cfg)
//
// Field names in messages follow the mapstructure, then json, tag so they
// read like the config keys users type.
package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/asrkit/errors"
)

// FieldError is one failed constraint, reported in the error details.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
})

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return snakeCase(f.Name)
}

// Validate checks s against its validate tags. Failures come back as one
// INVALID_INPUT AppError listing every field.
func Validate(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(fieldErrs))
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		fields[i] = FieldError{Field: fe.Field(), Message: describe(fe)}
		msgs[i] = fields[i].Field + ": " + fields[i].Message
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}

var phrases = map[string]string{
	"gt":    "must be greater than ",
	"gte":   "must be at least ",
	"min":   "must be at least ",
	"lt":    "must be less than ",
	"lte":   "must be at most ",
	"max":   "must be at most ",
	"oneof": "must be one of: ",
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	}
	if p, ok := phrases[fe.Tag()]; ok {
		return p + fe.Param()
	}
	return "is invalid"
}

// snakeCase lower-cases an exported Go name: MaxChunkDuration becomes
// max_chunk_duration.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
