package serverutils

import (
	"errors"

	"doc-assistant-be/internal/constant"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps errors returned by handlers to JSON responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			res := ErrorResponse(fiber.StatusBadRequest, "Validation failed")
			res.Data = verr.Fields
			return ctx.Status(fiber.StatusBadRequest).JSON(res)
		}

		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

// StatusFor picks the HTTP status for a domain error.
func StatusFor(err error) int {
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		return ferr.Code
	case errors.Is(err, constant.ErrDocumentNotFound), errors.Is(err, constant.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, constant.ErrPreconditionFailed):
		return fiber.StatusConflict
	case errors.Is(err, constant.ErrStorageIO), errors.Is(err, constant.ErrExport):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
