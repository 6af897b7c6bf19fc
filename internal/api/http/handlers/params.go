package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

// requireActor rejects anonymous requests before any path or body parsing.
func requireActor(c *fiber.Ctx) (*domain.Actor, error) {
	actor := auth.ActorFromContext(c)
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("missing or invalid token")
	}
	return actor, nil
}

// pathID reads a positive integer route parameter. A leading ':' left by
// clients that copy route templates literally is ignored.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	raw := strings.TrimPrefix(c.Params(name), ":")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
