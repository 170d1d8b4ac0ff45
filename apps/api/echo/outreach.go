package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core/outreach"
	"github.com/clubemanager/backend/core/user"
)

type outreachApi struct {
	svc      outreach.ServiceInterface
	validate *validator.Validate
}

func registerOutreachAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := outreachApi{
		svc:      deps.OutreachSvc,
		validate: deps.Validate,
	}

	og := g.Group("/outreach", jwt, tierMiddleware(user.TierFinance))

	og.GET("/templates", api.queryTemplates)
	og.GET("/templates/:channel", api.retrieveTemplate)
	og.PUT("/templates/:channel", api.updateTemplate)

	// preview renders notices for the current overdue set; nothing is sent
	og.POST("/preview", api.preview)
}

// Handlers

func (api *outreachApi) queryTemplates(ctx echo.Context) error {
	templates, err := api.svc.QueryTemplates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying templates")
	}
	if templates == nil {
		templates = []outreach.Template{}
	}
	return ctx.JSON(http.StatusOK, templates)
}

func (api *outreachApi) retrieveTemplate(ctx echo.Context) error {
	tpl, err := api.svc.GetTemplate(ctx.Request().Context(), ctx.Param("channel"))
	if err != nil {
		return errors.Wrap(err, "finding template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *outreachApi) updateTemplate(ctx echo.Context) error {
	var data outreach.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tpl, err := api.svc.UpdateTemplate(ctx.Request().Context(), ctx.Param("channel"), data)
	if err != nil {
		return errors.Wrap(err, "updating template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *outreachApi) preview(ctx echo.Context) error {
	var data NoticePreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoticePreviewRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	asOf := data.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	notices, err := api.svc.BuildOverdueNotices(ctx.Request().Context(), data.Channel, asOf)
	if err != nil {
		return errors.Wrap(err, "building overdue notices")
	}
	if notices == nil {
		notices = []outreach.Notice{}
	}
	return ctx.JSON(http.StatusOK, notices)
}

type NoticePreviewRequest struct {
	Channel string    `json:"channel" validate:"required"`
	AsOf    time.Time `json:"as_of"`
}
