package pkg

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/mailsync/internal/domain"
)

// Response is the JSON envelope for API responses.
type Response = domain.APIResponse[any]

// ValidationErrorResponse is the envelope for validation failures. Payload
// carries a one-line summary; Errors maps each offending field to its rule.
type ValidationErrorResponse struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Payload string            `json:"payload"`
	Errors  map[string]string `json:"errors"`
}

// Success sends a 200 envelope with the given payload.
func Success(c *gin.Context, payload any) {
	Respond(c, http.StatusOK, "success", payload)
}

// Created sends a 201 envelope with the given message and payload.
func Created(c *gin.Context, message string, payload any) {
	Respond(c, http.StatusCreated, message, payload)
}

// Respond sends a successful envelope with an explicit status code and message.
func Respond(c *gin.Context, code int, message string, payload any) {
	c.JSON(code, Response{
		Status:  true,
		Message: message,
		Payload: payload,
	})
}

// Error sends an error envelope. If err is a *domain.AppError, its code is
// mapped to the appropriate HTTP status; otherwise 500 is returned. The
// payload always carries the human-readable description.
func Error(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		Fail(c, http.StatusRequestTimeout, "request timed out")
		return
	}
	status := domain.HTTPStatusCode(err)

	var appErr *domain.AppError
	msg := "internal error"
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	Fail(c, status, msg)
}

// Fail sends an error envelope with an explicit status code and message.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Status:  false,
		Message: strings.ToLower(http.StatusText(code)),
		Payload: message,
	})
}

// List sends a 200 envelope for paginated list results.
func List[T any](c *gin.Context, page *domain.PaginatedResponse[T]) {
	Success(c, page)
}

// ValidationError sends a 400 envelope with per-field validation error details.
func ValidationError(c *gin.Context, err error) {
	validationErrorWithType(c, err, nil)
}

// BindAndValidate binds the request body to obj and validates it.
// On failure it automatically sends a ValidationError response and returns false.
// Usage in handlers:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

// validationErrorWithType sends a 400 validation error response.
// When obj is non-nil, it reflects on the struct to prefer JSON tag names.
func validationErrorWithType(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		Fail(c, http.StatusBadRequest, "request body is malformed")
		return
	}

	fieldErrors := describeFields(ve, obj)
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Status:  false,
		Message: "validation error",
		Payload: summarize(fieldErrors),
		Errors:  fieldErrors,
	})
}

// DescribeValidation renders a validation failure on obj as the one-line
// "field: message" summary used in validation envelopes. Other errors are
// returned as their text.
func DescribeValidation(err error, obj any) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	return summarize(describeFields(ve, obj))
}

func describeFields(ve validator.ValidationErrors, obj any) map[string]string {
	jsonTags := buildJSONTagMap(obj)

	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		if tag, ok := jsonTags[fe.StructField()]; ok {
			name = tag
		} else {
			name = strings.ToLower(name)
		}
		fieldErrors[name] = fieldMessage(fe)
	}
	return fieldErrors
}

// fieldMessage turns a validator failure into a human-readable sentence.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "fqdn":
		return "Must be a fully qualified domain name"
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	default:
		return "Failed on the '" + fe.Tag() + "' rule"
	}
}

// summarize renders field errors as "field: message" pairs in field order.
func summarize(fieldErrors map[string]string) string {
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+fieldErrors[name])
	}
	return strings.Join(parts, "; ")
}

// buildJSONTagMap returns a map from struct field name to its JSON tag name.
// If obj is nil or not a struct (pointer), it returns an empty map.
func buildJSONTagMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if name := parseJSONTagName(tag); name != "" {
			m[f.Name] = name
		}
	}
	return m
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
