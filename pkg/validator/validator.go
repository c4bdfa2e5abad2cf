package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type ConnectionRequestInput struct {
	Target string `json:"target" validate:"required,max=320"`
}

type PrivateConversationInput struct {
	Identity string `json:"identity" validate:"required,max=320"`
}

type GroupConversationInput struct {
	Title   string   `json:"title" validate:"required,max=100"`
	Members []string `json:"members" validate:"required,min=1,max=50,dive,required,max=320"`
}

// SendMessageInput carries no rules; blank and oversized bodies are rejected
// by the conversation service with their own codes.
type SendMessageInput struct {
	Content string `json:"content"`
}

// Struct validates s against its validate tags.
func Struct(s any) ValidationErrors {
	errs := make(ValidationErrors)

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		field := fieldPath(fe)
		if _, seen := errs[field]; !seen {
			errs.Add(field, message(fe))
		}
	}
	return errs
}

// fieldPath drops the struct name from the namespace: "members[0]".
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can have at most %s entries", name, fe.Param())
		}
		return fmt.Sprintf("%s is too long", name)
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
