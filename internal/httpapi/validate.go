// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/oops"
)

// requestValidator checks request structs and renders English messages
// keyed by the JSON field name.
type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Wrapf(err, "register validator translations")
	}
	return &requestValidator{validate: v, trans: trans}, nil
}

// Struct validates s. Field failures come back as REQUEST_VALIDATION with
// a "fields" context of field name to message.
func (rv *requestValidator) Struct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code("REQUEST_INVALID_BODY").Wrapf(err, "validate request")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(rv.trans)
	}
	return oops.Code("REQUEST_VALIDATION").
		With("fields", fields).
		Errorf("request validation failed")
}
