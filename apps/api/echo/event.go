package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core/event"
	"github.com/clubemanager/backend/core/user"
)

type eventApi struct {
	svc      event.ServiceInterface
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{
		svc:      deps.EventSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/events", jwt)

	// the front desk runs signups; scheduling events takes finance rights
	eg.GET("", api.query, tierMiddleware(user.TierFrontDesk))
	eg.GET("/types", api.queryTypes, tierMiddleware(user.TierFrontDesk))
	eg.POST("", api.create, tierMiddleware(user.TierFinance))

	dg := eg.Group("/:id")
	dg.GET("", api.retrieve, tierMiddleware(user.TierFrontDesk))
	dg.PUT("", api.update, tierMiddleware(user.TierFinance))
	dg.PUT("/status", api.setStatus, tierMiddleware(user.TierFinance))
	dg.GET("/registrations", api.queryRegistrations, tierMiddleware(user.TierFrontDesk))
	dg.POST("/registrations", api.register, tierMiddleware(user.TierFrontDesk))

	rg := g.Group("/registrations", jwt)
	rg.POST("/:id/confirm", api.confirmRegistration, tierMiddleware(user.TierFrontDesk))
	rg.POST("/:id/cancel", api.cancelRegistration, tierMiddleware(user.TierFrontDesk))
	rg.POST("/:id/no-show", api.markNoShow, tierMiddleware(user.TierFrontDesk))
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "scheduling event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	ev, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) setStatus(ctx echo.Context) error {
	var data EventStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventStatusRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	ev, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting event status")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *eventApi) queryTypes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, event.AllTypes)
}

func (api *eventApi) register(ctx echo.Context) error {
	var data event.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reg, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "registering member for event")
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *eventApi) queryRegistrations(ctx echo.Context) error {
	filter := new(event.RegistrationFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to RegistrationFilter")
	}
	filter.EventID = ctx.Param("id")
	ordering := new(Ordering)
	ordering.Bind(ctx)

	regs, err := api.svc.QueryRegistrations(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) confirmRegistration(ctx echo.Context) error {
	reg, err := api.svc.ConfirmRegistration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "confirming registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *eventApi) cancelRegistration(ctx echo.Context) error {
	reg, err := api.svc.CancelRegistration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *eventApi) markNoShow(ctx echo.Context) error {
	reg, err := api.svc.MarkNoShow(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking registration as no-show")
	}
	return ctx.JSON(http.StatusOK, reg)
}

type EventStatusRequest struct {
	Status string `json:"status" validate:"required,alleventstatuses"`
}
