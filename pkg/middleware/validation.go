package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/slotting-simulator/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator configures gin's validator to report json field names and
// returns it. Services register their own tags with RegisterValidation.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validate = v
		} else {
			validate = validator.New()
		}
		validate.RegisterTagNameFunc(jsonTagName)
	})
	return validate
}

func jsonTagName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// RegisterValidation adds a custom validation tag with the message shown
// when it fails.
func RegisterValidation(tag, message string, fn validator.Func) error {
	if err := InitValidator().RegisterValidation(tag, fn); err != nil {
		return err
	}
	messagesMu.Lock()
	defer messagesMu.Unlock()
	messages[tag] = message
	return nil
}

var (
	messagesMu sync.RWMutex
	messages   = make(map[string]string)
)

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	}

	messagesMu.RLock()
	defer messagesMu.RUnlock()
	if message, ok := messages[e.Tag()]; ok {
		return message
	}
	return "is invalid"
}

// BindAndValidate binds the JSON body into obj and validates it
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	return bindError(c.ShouldBindJSON(obj), "invalid request body")
}

// BindQuery binds the query string into obj and validates it
func BindQuery(c *gin.Context, obj any) *errors.AppError {
	return bindError(c.ShouldBindQuery(obj), "invalid query")
}

func bindError(err error, prefix string) *errors.AppError {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
	}
	return errors.ErrBadRequest(prefix + ": " + err.Error())
}

// ContentType rejects non JSON bodies on POST requests
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength > 0 && !strings.HasPrefix(contentType, "application/json") {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: 415,
				})
				return
			}
		}
		c.Next()
	}
}
