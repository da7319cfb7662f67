package server

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/openswoop/chronicler/pkg/lms"
	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Code:    fiber.StatusOK,
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func Error(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(Envelope{
		Code:    code,
		Status:  "error",
		Message: message,
	})
}

// statusOf maps core errors onto HTTP statuses.
func statusOf(err error) (int, string) {
	var (
		authErr    *lms.AuthError
		patternErr *schedule.PatternError
		validErr   validator.ValidationErrors
		fiberErr   *fiber.Error
		ttNet      *timetable.NetworkError
		ttParse    *timetable.ParseError
		lmsNet     *lms.NetworkError
		lmsParse   *lms.ParseError
	)
	switch {
	case errors.As(err, &authErr):
		return fiber.StatusUnauthorized, "invalid credentials"
	case errors.As(err, &patternErr), errors.As(err, &validErr):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &ttNet), errors.As(err, &lmsNet):
		return fiber.StatusBadGateway, "upstream unavailable"
	case errors.As(err, &ttParse), errors.As(err, &lmsParse):
		return fiber.StatusBadGateway, "unexpected upstream response"
	}
	return fiber.StatusInternalServerError, "internal error"
}

// errorHandler renders any error returned by a handler in the envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code, message := statusOf(err)
	if code >= fiber.StatusInternalServerError {
		log.Printf("[ERR] id=%v %s %s: %v", c.Locals(requestIdKey), c.Method(), c.Path(), err)
	}
	return Error(c, code, message)
}
