package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/cpcoach/backend/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,24}$`)
	// Codeforces marks a few tags with a leading star, e.g. "*special".
	topicPattern = regexp.MustCompile(`^\*?[a-zA-Z0-9\s\-]+$`)
)

const (
	MaxOffset = 500
	MaxRating = 4000
)

// Error is a single field failure. It unwraps to the models sentinel the
// HTTP layer maps to an error code.
type Error struct {
	Field   string
	Tag     string
	Message string
	kind    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		mustRegister("cfhandle", func(fl validator.FieldLevel) bool {
			return handlePattern.MatchString(fl.Field().String())
		})
		mustRegister("topic", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) >= 2 && len(s) <= 50 && topicPattern.MatchString(s)
		})
		mustRegister("offset", func(fl validator.FieldLevel) bool {
			v := fl.Field().Int()
			return v >= -MaxOffset && v <= MaxOffset
		})
		mustRegister("rating", func(fl validator.FieldLevel) bool {
			v := fl.Field().Int()
			return v >= 0 && v <= MaxRating
		})
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s and returns the first failure as *Error.
func Struct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return translate(verrs[0])
	}
	return &Error{Message: err.Error(), kind: models.ErrInvalidInput}
}

// Handle validates a bare handle, e.g. from a URL path.
func Handle(handle string) error {
	if err := get().Var(handle, "required,cfhandle"); err != nil {
		return &Error{Field: "handle", Tag: "cfhandle", Message: handleMessage(handle), kind: models.ErrInvalidHandle}
	}
	return nil
}

func handleMessage(handle string) string {
	if handle == "" {
		return "handle is required"
	}
	return fmt.Sprintf("invalid handle %q: must be 3-24 characters of letters, digits, '_' or '-'", handle)
}

func translate(fe validator.FieldError) *Error {
	e := &Error{Field: fe.Field(), Tag: fe.Tag(), kind: models.ErrInvalidInput}
	switch fe.Tag() {
	case "cfhandle":
		e.kind = models.ErrInvalidHandle
		e.Message = handleMessage(fmt.Sprint(fe.Value()))
	case "topic":
		e.kind = models.ErrInvalidTopic
		e.Message = "topic must be 2-50 characters of letters, digits, spaces or '-'"
	case "offset":
		e.Message = fmt.Sprintf("%s must be between %d and %d", fe.Field(), -MaxOffset, MaxOffset)
	case "rating":
		e.Message = fmt.Sprintf("%s must be between 0 and %d", fe.Field(), MaxRating)
	case "required":
		switch fe.Field() {
		case "Handle":
			e.kind = models.ErrInvalidHandle
		case "Topic":
			e.kind = models.ErrInvalidTopic
		}
		e.Message = fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		e.Message = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		e.Message = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return e
}
