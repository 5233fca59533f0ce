package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bothub/internal/models"
)

// PayPalConfig holds the values IPN messages are checked against. Prices are
// compared as exact strings; PayPal echoes back what the button was
// configured with, so numeric tolerance would only mask misconfiguration.
type PayPalConfig struct {
	BusinessEmail string
	Currency      string
	PlanPrices    map[models.Plan]string
}

// NewPayPalConfig returns a PayPalConfig for the standard EUR price table.
func NewPayPalConfig(businessEmail, priceBasic, pricePremium string) PayPalConfig {
	return PayPalConfig{
		BusinessEmail: businessEmail,
		Currency:      "EUR",
		PlanPrices: map[models.Plan]string{
			models.PlanBasic:   priceBasic,
			models.PlanPremium: pricePremium,
		},
	}
}

// PayPalIPNVerifier confirms an IPN message really originated from PayPal.
type PayPalIPNVerifier interface {
	Verify(ctx context.Context, body []byte) error
}

// postbackVerifier implements the documented IPN validation protocol: echo
// the message back to PayPal prefixed with cmd=_notify-validate and require
// the literal answer VERIFIED.
type postbackVerifier struct {
	verifyURL string
	httpc     *http.Client
}

// NewPayPalIPNVerifier returns the postback verifier for the given endpoint
// (live or sandbox).
func NewPayPalIPNVerifier(verifyURL string) PayPalIPNVerifier {
	return &postbackVerifier{
		verifyURL: verifyURL,
		httpc:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (v *postbackVerifier) Verify(ctx context.Context, body []byte) error {
	payload := "cmd=_notify-validate&" + string(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(payload))
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpc.Do(req)
	if err != nil {
		return models.NewProviderError("PayPal IPN postback failed", err)
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return models.NewProviderError("PayPal IPN postback unreadable", err)
	}
	if strings.TrimSpace(string(answer)) != "VERIFIED" {
		return models.NewPaymentVerificationError("PayPal did not verify the IPN message")
	}
	return nil
}

// ParsePayPalReturn decodes the browser return redirect after an approved
// payment. The user and plan come from the custom "userId|plan" field, or
// explicit userId/plan query parameters as a fallback.
func ParsePayPalReturn(query url.Values) (*Upgrade, error) {
	if status := query.Get("status"); status != "" && status != "success" {
		return nil, nil
	}

	var userID uint
	var plan models.Plan

	if custom := query.Get("custom"); custom != "" {
		up, err := upgradeFromReference("", custom)
		if err != nil {
			return nil, err
		}
		userID, plan = up.UserID, up.Plan
	} else {
		id, err := parseUserID(query.Get("userId"))
		if err != nil {
			return nil, err
		}
		p, ok := models.ParsePlan(query.Get("plan"))
		if !ok || p == models.PlanFree {
			return nil, models.NewValidationError(fmt.Sprintf("Unknown plan %q in PayPal return", query.Get("plan")))
		}
		userID, plan = id, p
	}

	return &Upgrade{
		EventID: query.Get("tx"),
		UserID:  userID,
		Plan:    plan,
		Method:  models.PaymentMethodPayPal,
	}, nil
}

// CheckIPN validates the business fields of an already-authenticity-verified
// IPN message and extracts the upgrade. Non-Completed payment statuses are
// ignored without error. Receiver, currency and amount mismatches are
// verification failures: the message is genuine but does not pay for what it
// claims.
func CheckIPN(form url.Values, cfg PayPalConfig) (*Upgrade, error) {
	if form.Get("payment_status") != "Completed" {
		return nil, nil
	}

	if !strings.EqualFold(form.Get("receiver_email"), cfg.BusinessEmail) {
		return nil, models.NewPaymentVerificationError("IPN receiver email does not match the business account")
	}

	up, err := upgradeFromReference(form.Get("txn_id"), form.Get("custom"))
	if err != nil {
		return nil, err
	}
	up.Method = models.PaymentMethodPayPal

	if form.Get("mc_currency") != cfg.Currency {
		return nil, models.NewPaymentVerificationError(fmt.Sprintf("IPN currency %q is not %s", form.Get("mc_currency"), cfg.Currency))
	}
	expected, ok := cfg.PlanPrices[up.Plan]
	if !ok {
		return nil, models.NewPaymentVerificationError(fmt.Sprintf("No price configured for plan %q", up.Plan))
	}
	if form.Get("mc_gross") != expected {
		return nil, models.NewPaymentVerificationError(fmt.Sprintf("IPN amount %q does not match plan price %s", form.Get("mc_gross"), expected))
	}

	return up, nil
}
