package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"service-resolver-be/pkg/resolve/executor"
)

// ErrorHandlerMiddleware converts errors escaping the handlers into the
// uniform envelope. Pipeline sentinels map onto upstream-flavored codes:
// invalid input is the caller's fault (400), a dead dependency is a bad
// gateway (502), a deadline hit is a gateway timeout (504).
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := statusFromError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFromError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, executor.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, executor.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, executor.ErrEmbeddingUnavailable),
		errors.Is(err, executor.ErrIndexUnavailable),
		errors.Is(err, executor.ErrRerankUnavailable),
		errors.Is(err, executor.ErrAugmentationUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
