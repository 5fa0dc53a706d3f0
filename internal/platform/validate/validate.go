// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Validation runs in the service layer, before any store access, so malformed
// identifiers never reach the record store.
package validate

import (
	"regexp"
	"slices"
	"strings"

	"github.com/taibuivan/animeids/internal/platform/apperr"
)

// numericRegex matches a non-negative decimal integer without sign.
var numericRegex = regexp.MustCompile(`^\d+$`)

// IsNumeric reports whether value is a plain decimal integer.
func IsNumeric(value string) bool {
	return numericRegex.MatchString(value)
}

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
func (v *Validator) Required(field, value, message string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
	return v
}

// Numeric fails if a non-empty value is not a decimal integer.
func (v *Validator) Numeric(field, value, message string) *Validator {
	if value != "" && !IsNumeric(value) {
		v.add(field, message)
	}
	return v
}

// OneOf fails with message if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value, message string, allowed ...string) *Validator {
	if !slices.Contains(allowed, value) {
		v.add(field, message)
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("season", season == "0", "Season ID cannot be 0")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns an InvalidInput [apperr.AppError] titled title if any rule
// failed, or nil if all rules passed. The first failure becomes the message.
//
// Call it at the end of the chain.
func (v *Validator) Err(title string) error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.InvalidInput(title, v.errs[0].Message, v.errs...)
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
