package pileapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/pilecalc/pile-api/middleware/jwtware"
)

// ErrorResponse is the JSON body rendered for every failed request
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewErrorHandler returns the fiber error handler. Client messages come only
// from *Error.Message; wrapped sources are logged, never rendered.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		var (
			richErr  *Error
			fiberErr *fiber.Error
		)

		switch {
		case errors.As(err, &richErr):
		case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
			richErr = ErrTokenInvalid.Wrap(err)
		case errors.As(err, &fiberErr):
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Message: fiberErr.Message})
		default:
			richErr = WrapError(err, CategoryInternal, ErrStoreUnavailable.Message)
		}

		status := richErr.Code
		if status == 0 {
			status = codeForCategory(richErr.Category)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			logger.Debug("request rejected",
				"method", c.Method(),
				"path", c.Path(),
				"category", string(richErr.Category),
				"text_code", richErr.TextCode,
			)
		}

		return c.Status(status).JSON(ErrorResponse{
			Message: clientMessage(richErr),
			Errors:  richErr.ValidationErrors,
		})
	}
}

func clientMessage(e *Error) string {
	if e.TextCode == TextCodeEmailTaken {
		if email, ok := e.Metadata["email"].(string); ok && email != "" {
			return fmt.Sprintf("%s is already linked to an existing account.", email)
		}
	}
	return e.Message
}

// AccessLogger logs one line per request
func AccessLogger(logger Logger) fiber.Handler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusCode(err)
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		logger.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.IP(),
		)
		return err
	}
}
