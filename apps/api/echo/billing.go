package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/user"
)

type billingApi struct {
	svc      billing.ServiceInterface
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := billingApi{
		svc:      deps.BillingSvc,
		validate: deps.Validate,
	}

	bg := g.Group("/billing", jwt)

	bg.GET("/policy", api.getPolicy, tierMiddleware(user.TierFinance))
	bg.PUT("/policy", api.updatePolicy, tierMiddleware(user.TierFinance))

	bg.POST("/preview", api.preview, tierMiddleware(user.TierFinance))
	bg.POST("/generate", api.generate, tierMiddleware(user.TierFinance))
	bg.POST("/evaluate-overdue", api.evaluateOverdue, tierMiddleware(user.TierFinance))

	dg := bg.Group("/dues")
	dg.GET("", api.query, tierMiddleware(user.TierFrontDesk))
	dg.GET("/:id", api.retrieve, tierMiddleware(user.TierFrontDesk))
	dg.POST("/:id/pay", api.recordPayment, tierMiddleware(user.TierFinance))
	dg.POST("/:id/cancel", api.cancel, tierMiddleware(user.TierFinance))
}

// Handlers

func (api *billingApi) getPolicy(ctx echo.Context) error {
	policy, err := api.svc.GetPolicy(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading billing policy")
	}
	return ctx.JSON(http.StatusOK, policy)
}

func (api *billingApi) updatePolicy(ctx echo.Context) error {
	var data billing.UpdatePolicy
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePolicy")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	policy, err := api.svc.UpdatePolicy(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating billing policy")
	}
	return ctx.JSON(http.StatusOK, policy)
}

func (api *billingApi) preview(ctx echo.Context) error {
	var data billing.GenerateInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dues, err := api.svc.Preview(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "previewing dues")
	}
	if dues == nil {
		dues = []billing.Due{}
	}
	return ctx.JSON(http.StatusOK, dues)
}

func (api *billingApi) generate(ctx echo.Context) error {
	var data billing.GenerateInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Generate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating dues")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *billingApi) evaluateOverdue(ctx echo.Context) error {
	var data EvaluateOverdueRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EvaluateOverdueRequest")
	}
	asOf := data.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	res, err := api.svc.EvaluateOverdue(ctx.Request().Context(), asOf)
	if err != nil {
		return errors.Wrap(err, "evaluating overdue dues")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *billingApi) query(ctx echo.Context) error {
	filter := new(billing.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	dues, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying dues")
	}
	if dues == nil {
		dues = []billing.Due{}
	}
	return ctx.JSON(http.StatusOK, dues)
}

func (api *billingApi) retrieve(ctx echo.Context) error {
	due, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding due by ID")
	}
	return ctx.JSON(http.StatusOK, due)
}

func (api *billingApi) recordPayment(ctx echo.Context) error {
	var data billing.PaymentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentInput")
	}

	due, err := api.svc.RecordPayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusOK, due)
}

func (api *billingApi) cancel(ctx echo.Context) error {
	due, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling due")
	}
	return ctx.JSON(http.StatusOK, due)
}

type EvaluateOverdueRequest struct {
	AsOf time.Time `json:"as_of"`
}
