package response

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
)

// Status возвращает HTTP-статус для категории доменной ошибки
func Status(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return fiber.StatusBadRequest
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindConflict:
		return fiber.StatusConflict
	case errs.KindInvalidState:
		return fiber.StatusUnprocessableEntity
	case errs.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// Error отправляет ошибку клиенту в JSON. Неизвестные ошибки логируются и скрываются.
func Error(c fiber.Ctx, log *logrus.Logger, err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Внутренняя ошибка")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Внутренняя ошибка сервера"})
	}

	body := fiber.Map{
		"error": e.Error(),
		"kind":  e.Kind.String(),
	}
	if e.Entity != "" {
		body["entity"] = e.Entity
	}
	if e.ID != 0 {
		body["id"] = e.ID
	}
	if tr := e.Transition(); tr != "" {
		body["transition"] = tr
	}
	return c.Status(Status(e.Kind)).JSON(body)
}

// ErrorHandler - обработчик ошибок Fiber на основе Error
func ErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		return Error(c, log, err)
	}
}
