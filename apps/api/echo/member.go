package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/user"
)

type memberApi struct {
	svc      member.ServiceInterface
	validate *validator.Validate
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := memberApi{
		svc:      deps.MemberSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/members", jwt)

	// the front desk consults the roster; changing it takes finance rights
	mg.GET("", api.query, tierMiddleware(user.TierFrontDesk))
	mg.GET("/categories", api.queryCategories, tierMiddleware(user.TierFrontDesk))
	mg.POST("", api.create, tierMiddleware(user.TierFinance))

	dg := mg.Group("/:id")
	dg.GET("", api.retrieve, tierMiddleware(user.TierFrontDesk))
	dg.PUT("", api.update, tierMiddleware(user.TierFinance))
	dg.PUT("/status", api.setStatus, tierMiddleware(user.TierFinance))
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling member")
	}
	return ctx.JSON(http.StatusCreated, mbr)
}

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	mbr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) update(ctx echo.Context) error {
	var data member.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) setStatus(ctx echo.Context) error {
	var data MemberStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MemberStatusRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	mbr, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting member status")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) queryCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, member.AllCategories)
}

type MemberStatusRequest struct {
	Status string `json:"status" validate:"required,allstatuses"`
}
