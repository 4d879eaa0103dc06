package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"simon-says-server/logger"
	"simon-says-server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// parseBody decodes the JSON body into dst and validates it. Failures come
// back as InvalidOperation so respondError maps them to 400.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return services.InvalidOperation("Invalid request body")
		}
	}
	if err := validate.Struct(dst); err != nil {
		return services.InvalidOperation(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindInvalidOperation, services.KindConflict:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError writes {success:false, message}. Unclassified errors are
// logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		return c.Status(statusFor(appErr.Kind)).JSON(fiber.Map{
			"success": false,
			"message": appErr.Message,
		})
	}
	log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Server error",
	})
}

func ok(c *fiber.Ctx, body fiber.Map) error {
	body["success"] = true
	return c.JSON(body)
}
