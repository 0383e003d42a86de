package controller

import (
	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/serverutils"
	"service-resolver-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IResolveController interface {
	RegisterRoutes(r fiber.Router)
	Resolve(ctx *fiber.Ctx) error
}

type resolveController struct {
	service service.IResolverService
}

func NewResolveController(service service.IResolverService) IResolveController {
	return &resolveController{service: service}
}

func (c *resolveController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/resolve/v1")
	h.Post("", c.Resolve)
}

func (c *resolveController) Resolve(ctx *fiber.Ctx) error {
	var req dto.ResolveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Resolve(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
