// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate turns request payload rules into a single [apperr.AppError].
//
// # Architecture
//
// Struct tags are checked by go-playground/validator with its English
// translations. Field names come from the json tag so messages match the wire
// format. All failures are reported together: the message joins every field
// message with ", " and Details carries them one by one.
//
// The chainable [Validator] remains for rules that do not fit a struct tag.
package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
)

// Custom tags registered on the shared engine.
const (
	TagAssignableRole = "assignable_role"
	TagRole           = "role"
	TagMaxBytes       = "max_bytes"
)

var (
	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// MessageOverrider lets a payload replace translated messages.
// Keys are "<jsonField>.<tag>", e.g. "email.required".
type MessageOverrider interface {
	ValidationMessages() map[string]string
}

// # Struct Validation

type engine struct {
	validate   *validator.Validate
	translator ut.Translator
}

var shared = sync.OnceValue(newEngine)

func newEngine() *engine {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names instead of Go field names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(fmt.Sprintf("validate: register translations: %v", err))
	}

	mustRegister(validate, translator, TagAssignableRole, "{0} must be one of: normal, company, team_leader",
		func(level validator.FieldLevel) bool {
			return sec.Role(level.Field().String()).In(sec.SelfAssignableRoles()...)
		})
	mustRegister(validate, translator, TagRole, "{0} must be one of: normal, company, team_leader, admin",
		func(level validator.FieldLevel) bool {
			return sec.Role(level.Field().String()).Valid()
		})
	// Byte length, not rune count. Hash inputs are bounded in bytes.
	mustRegister(validate, translator, TagMaxBytes, "{0} must be at most {1} bytes",
		func(level validator.FieldLevel) bool {
			limit, err := strconv.Atoi(level.Param())
			if err != nil {
				return false
			}
			return len(level.Field().String()) <= limit
		})

	return &engine{validate: validate, translator: translator}
}

func mustRegister(validate *validator.Validate, translator ut.Translator, tag, message string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}

	err := validate.RegisterTranslation(tag, translator,
		func(translator ut.Translator) error {
			return translator.Add(tag, message, true)
		},
		func(translator ut.Translator, fieldErr validator.FieldError) string {
			text, _ := translator.T(tag, fieldErr.Field(), fieldErr.Param())
			return text
		},
	)
	if err != nil {
		panic(fmt.Sprintf("validate: translate %s: %v", tag, err))
	}
}

/*
Struct validates target against its `validate` struct tags.

Parameters:
  - target: any (Pointer to a tagged request struct)

Returns:
  - error: *apperr.AppError (VALIDATION_ERROR) listing every failure, or nil
*/
func Struct(target any) error {
	engine := shared()

	err := engine.validate.Struct(target)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.ValidationError(err.Error())
	}

	var overrides map[string]string
	if overrider, ok := target.(MessageOverrider); ok {
		overrides = overrider.ValidationMessages()
	}

	details := make([]apperr.FieldError, 0, len(fieldErrors))
	messages := make([]string, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		message, found := overrides[fieldErr.Field()+"."+fieldErr.Tag()]
		if !found {
			message = fieldErr.Translate(engine.translator)
		}
		details = append(details, apperr.FieldError{Field: fieldErr.Field(), Message: message})
		messages = append(messages, message)
	}

	return apperr.ValidationError(strings.Join(messages, ", "), details...)
}

// # Chainable Validator

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, field+" is a required field")
	}
	return v
}

// Length fails if the Unicode character count is outside [min, max].
func (v *Validator) Length(field, value string, min, max int) *Validator {
	count := utf8.RuneCountInString(value)
	if count < min || count > max {
		v.add(field, fmt.Sprintf("%s must be between %d and %d characters", field, min, max))
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}

	messages := make([]string, len(v.errs))
	for i, fieldErr := range v.errs {
		messages[i] = fieldErr.Message
	}
	return apperr.ValidationError(strings.Join(messages, ", "), v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
