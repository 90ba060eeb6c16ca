package controllers

import (
	"errors"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// statusForKind maps a tagged error kind to its stable HTTP status.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidRequest:
		return fiber.StatusBadRequest
	case domain.KindUnauthorized, domain.KindTokenExpired:
		return fiber.StatusUnauthorized
	case domain.KindInsufficientPermissions, domain.KindSecurity:
		return fiber.StatusForbidden
	case domain.KindReportNotFound:
		return fiber.StatusNotFound
	case domain.KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func respondOK(ctx fiber.Ctx, data any) error {
	return ctx.Status(fiber.StatusOK).JSON(domain.OKResponse(requestid.FromContext(ctx), data))
}

func respondError(ctx fiber.Ctx, kind domain.ErrorKind, message string, details any) error {
	return ctx.Status(statusForKind(kind)).JSON(
		domain.ErrorResponse(requestid.FromContext(ctx), kind, message, details))
}

// respondForError maps any failure to its envelope using the kind tagged at
// the point of failure. Upstream error text never reaches the caller; only
// messages set on domain errors do.
func respondForError(ctx fiber.Ctx, err error, fallback string) error {
	kind := domain.KindOf(err)

	var de *domain.Error
	message := fallback
	if errors.As(err, &de) {
		message = de.Message
	}

	return respondError(ctx, kind, message, nil)
}
