package middleware

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
)

// pickupTags are the custom tags usable in `binding` and `validate` struct tags
var pickupTags = map[string]map[string]bool{
	"pickup_policy": {
		"default": true,
		"strict":  true,
	},
	"pickup_outcome": {
		"offered":                 true,
		"attribute_missing":       true,
		"attribute_not_triggered": true,
		"empty_cart":              true,
		"disabled":                true,
		"no_location":             true,
	},
}

var fieldMessages = map[string]func(param string) string{
	"required":       func(string) string { return "is required" },
	"min":            func(p string) string { return "must be at least " + p },
	"max":            func(p string) string { return "must be at most " + p },
	"gte":            func(p string) string { return "must be at least " + p },
	"lte":            func(p string) string { return "must be at most " + p },
	"oneof":          func(p string) string { return "must be one of: " + strings.ReplaceAll(p, " ", ", ") },
	"pickup_policy":  func(string) string { return "must be one of: default, strict" },
	"pickup_outcome": func(string) string { return "must be a known evaluation outcome" },
}

var (
	structValidator *validator.Validate
	setupOnce       sync.Once
)

// Validator returns the validator used by ValidateStruct. The first call
// also registers the pickup tags on gin's binding engine.
func Validator() *validator.Validate {
	setupOnce.Do(func() {
		structValidator = validator.New()
		configure(structValidator)
		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(engine)
		}
	})
	return structValidator
}

func configure(v *validator.Validate) {
	for tag, allowed := range pickupTags {
		allowed := allowed
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return allowed[fl.Field().String()]
		})
	}
	v.RegisterTagNameFunc(fieldName)
}

// fieldName reports fields by their json or form name
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// FieldErrors maps each failing field to a readable message. Errors that are
// not validation errors give an empty map.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	failed, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range failed {
		msg := "is invalid"
		if format, ok := fieldMessages[fe.Tag()]; ok {
			msg = format(fe.Param())
		}
		out[fe.Field()] = msg
	}
	return out
}

func bindingError(err error, what string) *errors.AppError {
	if fields := FieldErrors(err); len(fields) > 0 {
		return errors.ErrValidationWithFields("validation failed", fields)
	}
	return errors.ErrBadRequest("invalid " + what + ": " + err.Error())
}

// BindQueryAndValidate binds the query string into obj and runs its binding rules
func BindQueryAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		return bindingError(err, "query parameters")
	}
	return nil
}

// ValidateStruct runs the `validate` rules of obj
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := Validator().Struct(obj); err != nil {
		return bindingError(err, "value")
	}
	return nil
}

// ContentType rejects POST bodies that are not JSON
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.ContentLength <= 0 {
			c.Next()
			return
		}
		if !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
			AbortWithAppError(c, errors.NewAppError("INVALID_CONTENT_TYPE", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
			return
		}
		c.Next()
	}
}
