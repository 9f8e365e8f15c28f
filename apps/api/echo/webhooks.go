package echoapi

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
)

var errMalformedEvent = stderrors.New("malformed event payload")

type webhookApi struct {
	userSvc        *user.Service
	purchaseSvc    *purchase.Service
	identityEvents user.EventParser
	paymentEvents  purchase.EventParser
}

// registerWebhookAPI mounts the provider callback endpoints. They sit outside
// session auth: each request authenticates itself via its payload signature.
func registerWebhookAPI(
	g *echo.Group,
	userSvc *user.Service,
	purchaseSvc *purchase.Service,
	identityEvents user.EventParser,
	paymentEvents purchase.EventParser,
) {
	api := webhookApi{
		userSvc:        userSvc,
		purchaseSvc:    purchaseSvc,
		identityEvents: identityEvents,
		paymentEvents:  paymentEvents,
	}

	wg := g.Group("/webhooks")
	wg.POST("/clerk", api.identityEvent)
	wg.POST("/stripe", api.paymentEvent)
}

// Handlers

func (api *webhookApi) identityEvent(ctx echo.Context) error {
	// the signature covers the raw body; read it before any parsing
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	evt, err := api.identityEvents.ParseEvent(payload, ctx.Request().Header)
	if err != nil {
		if stderrors.Is(err, core.ErrEventSignature) {
			return errInvalidSignature
		}
		return core.NewValidationError(errMalformedEvent)
	}

	outcome, err := api.userSvc.ReconcileEvent(ctx.Request().Context(), evt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, IdentityEventResponse{Success: true, Message: string(outcome)})
}

func (api *webhookApi) paymentEvent(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	evt, err := api.paymentEvents.ParseEvent(payload, ctx.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		// the provider retries on anything but a 2xx; a bad signature or
		// payload will never verify, so reject it outright
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	if _, err = api.purchaseSvc.ReconcileEvent(ctx.Request().Context(), evt); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PaymentEventResponse{Received: true})
}

// Responses

type IdentityEventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PaymentEventResponse struct {
	Received bool `json:"received"`
}
