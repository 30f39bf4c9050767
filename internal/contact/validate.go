package contact

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"portfolio-site-api/internal/apperrors"
)

// Submission is the public contact form.
type Submission struct {
	Name    string `json:"name" validate:"min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"min=10,max=1000"`
}

// Normalize trims surrounding whitespace from every field. Validation runs on
// the submission as typed; Normalize only shapes what is stored and mailed.
func (s Submission) Normalize() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Message: strings.TrimSpace(s.Message),
	}
}

var (
	once     sync.Once
	validate *validator.Validate
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// fieldMessages maps field and failed tag to the message shown in the form.
var fieldMessages = map[string]map[string]string{
	"name": {
		"min": "Name must be at least 2 characters",
		"max": "Name must be at most 100 characters",
	},
	"email": {
		"required": "Please enter a valid email address",
		"email":    "Please enter a valid email address",
	},
	"message": {
		"min": "Message must be at least 10 characters",
		"max": "Message must be at most 1000 characters",
	},
}

// Validate checks a submission as typed. The returned error is a validation
// AppError with one message per failing field.
func Validate(s Submission) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.Internal(err, "Invalid contact form")
	}

	fields := make(map[string]string, len(ve))
	first := ""
	for _, fe := range ve {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = msg
		}
		if first == "" {
			first = msg
		}
	}
	return apperrors.Validation(first, fields)
}
