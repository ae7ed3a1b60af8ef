package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/consultorio-api/internal/common"
)

// Handler exposes the client-facing payment endpoints.
type Handler struct {
	Svc            *Service
	PublishableKey string
	Configured     bool
}

type configResp struct {
	IsConfigured   bool   `json:"isConfigured"`
	PublishableKey string `json:"publishableKey"`
	Currency       string `json:"currency"`
}

type intentReq struct {
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"metadata"`
}

type intentResp struct {
	ClientSecret string `json:"clientSecret"`
}

type recordReq struct {
	PaymentIntentID string         `json:"paymentIntentId"`
	ServiceType     string         `json:"serviceType"`
	Details         map[string]any `json:"details"`
}

// Config reports whether payments are available and the publishable key.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	currency := ""
	if h.Svc != nil {
		currency = h.Svc.Currency
	}
	common.JSON(w, http.StatusOK, configResp{
		IsConfigured:   h.Configured,
		PublishableKey: h.PublishableKey,
		Currency:       currency,
	})
}

// CreateIntent opens a payment intent for the authenticated caller.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	id, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("No authentication token provided", nil))
		return
	}
	var req intentReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		common.WriteError(w, common.InvalidInput("Invalid request body"))
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		common.WriteError(w, common.InvalidInput("Invalid amount"))
		return
	}
	secret, err := h.Svc.CreateIntent(r.Context(), CreateIntentInput{
		Amount:         amount,
		Description:    req.Description,
		Metadata:       stringifyMetadata(req.Metadata),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, intentResp{ClientSecret: secret})
}

// RecordPayment stores the record of a payment the provider reports as succeeded.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("No authentication token provided", nil))
		return
	}
	var req recordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.InvalidInput("Invalid request body"))
		return
	}
	err := h.Svc.RecordPayment(r.Context(), RecordPaymentInput{
		PaymentIntentID: req.PaymentIntentID,
		ServiceType:     req.ServiceType,
		Details:         req.Details,
	}, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// stringifyMetadata flattens caller metadata to the string values the provider
// stores. Nested values are kept as compact JSON; nulls are dropped.
func stringifyMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = v
		case json.Number, bool:
			out[key] = fmt.Sprint(v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(raw)
		}
	}
	return out
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
