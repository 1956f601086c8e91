package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// enumTag is a custom binding tag backed by one of the ledger enums
type enumTag struct {
	valid   func(string) bool
	message string
}

var ledgerEnumTags = map[string]enumTag{
	"ledger_status": {func(s string) bool { return ledger.Status(s).IsValid() }, "Unknown sale status"},
	"error_source":  {func(s string) bool { return ledger.ErrorSource(s).IsValid() }, "Unknown error source"},
	"severity":      {func(s string) bool { return ledger.Severity(s).IsValid() }, "Unknown severity"},
}

// SetupValidator installs the ledger tags on gin's default validator
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterLedgerValidators(v)
	}
}

// RegisterLedgerValidators reports fields by their json (or form) name and
// registers the ledger enum tags on v
func RegisterLedgerValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
	for tag, enum := range ledgerEnumTags {
		valid := enum.valid
		// only fails on an empty tag or nil func
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}
}

// AbortInvalid answers 400 with one detail per rejected field. Errors that
// are not validator failures, such as malformed JSON, carry no details.
func AbortInvalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.Invalid(getRequestID(c), validationDetails(err)))
}

func validationDetails(err error) []dto.ValidationDetail {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return details
}

func fieldMessage(fe validator.FieldError) string {
	if enum, ok := ledgerEnumTags[fe.Tag()]; ok {
		return enum.message
	}
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min", "gte":
		return "Must be at least " + fe.Param() + unit
	case "max", "lte":
		return "Must be at most " + fe.Param() + unit
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	}
	return "Invalid value"
}
