package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Input is a request payload for a tenant-owned resource. Fields carry a db
// tag naming the column they write; nil pointers are left untouched.
type Input interface {
	// Required lists the json fields that must be present on create.
	Required() []string
}

// label turns a json field name into the wording used in messages.
func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func requiredMessage(field string) string {
	return fmt.Sprintf("The %s field is required.", label(field))
}

func fieldMessage(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return requiredMessage(fe.Field())
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid. Allowed values: %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s must have at least %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", name, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", name, fe.Param())
	case "len":
		return fmt.Sprintf("The %s must be %s characters.", name, fe.Param())
	case "datetime":
		return fmt.Sprintf("The %s does not match the format %s.", name, fe.Param())
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", name)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", label(fe.Param()))
	}
	return fmt.Sprintf("The %s is invalid.", name)
}

// fieldErrors maps validator failures to json field names. Elements of a
// slice are reported under the slice's own name.
func fieldErrors(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field, _, _ := strings.Cut(fe.Field(), "[")
		out[field] = append(out[field], fieldMessage(fe))
	}
	return out
}

// decode reads a JSON body into dst and validates it. The returned problem
// is ready to write.
func decode(r *http.Request, dst any, operation string) *response.Problem {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return invalidBody(err)
	}
	if err := validate.Struct(dst); err != nil {
		if fe := fieldErrors(err); fe != nil {
			return response.ValidationError(fe, operation)
		}
		return response.New("Request could not be validated.", http.StatusBadRequest, "INVALID_REQUEST", nil, nil)
	}
	return nil
}

func invalidBody(err error) *response.Problem {
	details := map[string]any{"reason": "malformed_json"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		details = map[string]any{"reason": "wrong_type", "field": typeErr.Field}
	}
	return response.New("The request body is not valid JSON.", http.StatusBadRequest, "INVALID_REQUEST", details, nil)
}

// missingRequired reports required fields absent from values.
func missingRequired(in Input, values map[string]any) map[string][]string {
	cols := columnsByJSON(in)
	out := map[string][]string{}
	for _, f := range in.Required() {
		v, ok := values[cols[f]]
		if s, isString := v.(string); !ok || (isString && strings.TrimSpace(s) == "") {
			out[f] = []string{requiredMessage(f)}
		}
	}
	return out
}

// valuesOf collects the non-nil fields of a payload keyed by column.
func valuesOf(in any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(in))
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		col := t.Field(i).Tag.Get("db")
		if col == "" || col == "-" {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Pointer:
			if fv.IsNil() {
				continue
			}
			out[col] = fv.Elem().Interface()
		case reflect.Slice, reflect.Map:
			if fv.IsNil() {
				continue
			}
			out[col] = fv.Interface()
		default:
			out[col] = fv.Interface()
		}
	}
	return out
}

func columnsByJSON(in any) map[string]string {
	t := reflect.Indirect(reflect.ValueOf(in)).Type()
	out := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if col := f.Tag.Get("db"); col != "" && name != "" {
			out[name] = col
		}
	}
	return out
}
