package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldFailure names a struct field that broke one of its validate tags.
type FieldFailure struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (f FieldFailure) String() string {
	if f.Param != "" {
		return f.Field + " failed on " + f.Tag + "=" + f.Param
	}
	return f.Field + " failed on " + f.Tag
}

// FieldFailures collects the tag failures of one record.
type FieldFailures []FieldFailure

func (v FieldFailures) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, failure := range v {
		parts[i] = failure.String()
	}
	return strings.Join(parts, "; ")
}

// Fields lists the failing field names in struct order.
func (v FieldFailures) Fields() []string {
	fields := make([]string, len(v))
	for i, failure := range v {
		fields[i] = failure.Field
	}
	return fields
}

// ValidateStruct checks the validate tags of a record and returns FieldFailures when any fail.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	failures := make(FieldFailures, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, FieldFailure{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

// CheckRecord validates a record before it is written. Tag failures become a validation
// AppError carrying message, with the FieldFailures kept as the internal cause. Anything
// else, such as passing a nil pointer, is returned unchanged.
func CheckRecord(record any, message string) error {
	err := ValidateStruct(record)
	if err == nil {
		return nil
	}
	var failures FieldFailures
	if errors.As(err, &failures) {
		return apperrors.NewValidation(message).WithInternal(failures)
	}
	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
