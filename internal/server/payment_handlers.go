package server

import (
	"net/url"

	"bothub/internal/middleware"
	"bothub/internal/models"
	"bothub/internal/observability"
	"bothub/internal/payments"

	"github.com/gofiber/fiber/v2"
)

// StripeWebhook handles POST /webhooks/stripe. Signature verification is
// mandatory; an unverifiable payload is answered 400 so Stripe retries, a
// verified but irrelevant event is acknowledged without action.
func (s *Server) StripeWebhook(c *fiber.Ctx) error {
	event, err := s.stripeVerifier.Verify(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		observability.WebhookEvents.WithLabelValues("stripe", "verification_failed").Inc()
		middleware.Logger.WarnContext(c.UserContext(), "stripe webhook rejected",
			"error", err.Error())
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	up, err := payments.ParseStripeEvent(event)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("stripe", "error").Inc()
		middleware.Logger.WarnContext(c.UserContext(), "stripe event unusable",
			"event_id", event.ID, "type", string(event.Type), "error", err.Error())
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	if up == nil {
		observability.WebhookEvents.WithLabelValues("stripe", "ignored").Inc()
		return c.JSON(fiber.Map{"received": true})
	}

	applied, err := s.paymentService.ApplyUpgrade(c.UserContext(), *up)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("stripe", "error").Inc()
		middleware.Logger.ErrorContext(c.UserContext(), "stripe upgrade failed",
			"event_id", up.EventID, "user_id", up.UserID, "error", err.Error())
		// Non-2xx makes Stripe redeliver; the dedupe claim was released.
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{"received": true, "applied": applied})
}

// PayPalReturn handles GET /webhooks/paypal, the browser redirect after an
// approved payment. The redirect carries no verifiable proof of payment, so
// it only records a pending checkout; the verified IPN message confirms and
// applies the upgrade.
func (s *Server) PayPalReturn(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled("paypal_payments", 0) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewValidationError("PayPal payments are not enabled"))
	}

	query, err := url.ParseQuery(string(c.Context().URI().QueryString()))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Malformed query string"))
	}

	up, err := payments.ParsePayPalReturn(query)
	if err != nil {
		return respondServiceError(c, err)
	}
	if up == nil {
		return c.JSON(fiber.Map{"success": false, "message": "Payment was not completed"})
	}

	if err := s.paymentService.MarkPendingCheckout(c.UserContext(), up.UserID, up.Plan, up.Method, up.EventID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment received, your plan will be upgraded once PayPal confirms it",
		"plan":    up.Plan,
	})
}

// PayPalIPN handles POST /webhooks/paypal/ipn. Per the IPN protocol the
// response is always HTTP 200 with body "IPN received"; outcomes are only
// visible in logs and metrics. Anything else makes PayPal resend forever.
func (s *Server) PayPalIPN(c *fiber.Ctx) error {
	const ack = "IPN received"
	ctx := c.UserContext()

	if !s.featureFlags.Enabled("paypal_payments", 0) {
		observability.WebhookEvents.WithLabelValues("paypal", "ignored").Inc()
		return c.SendString(ack)
	}

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	if err := s.paypalVerifier.Verify(ctx, body); err != nil {
		observability.WebhookEvents.WithLabelValues("paypal", "verification_failed").Inc()
		middleware.Logger.WarnContext(ctx, "paypal ipn rejected", "error", err.Error())
		return c.SendString(ack)
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		observability.WebhookEvents.WithLabelValues("paypal", "error").Inc()
		middleware.Logger.WarnContext(ctx, "paypal ipn unparseable", "error", err.Error())
		return c.SendString(ack)
	}

	up, err := payments.CheckIPN(form, s.paypalCfg)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("paypal", "verification_failed").Inc()
		middleware.Logger.WarnContext(ctx, "paypal ipn check failed",
			"txn_id", form.Get("txn_id"), "error", err.Error())
		return c.SendString(ack)
	}
	if up == nil {
		observability.WebhookEvents.WithLabelValues("paypal", "ignored").Inc()
		return c.SendString(ack)
	}

	if _, err := s.paymentService.ApplyUpgrade(ctx, *up); err != nil {
		observability.WebhookEvents.WithLabelValues("paypal", "error").Inc()
		middleware.Logger.ErrorContext(ctx, "paypal upgrade failed",
			"txn_id", up.EventID, "user_id", up.UserID, "error", err.Error())
	}

	return c.SendString(ack)
}
