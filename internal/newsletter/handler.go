package newsletter

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/consultorio-api/internal/common"
)

// Handler exposes the newsletter sign-up endpoint.
type Handler struct {
	Svc *Service
}

type subscribeReq struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/newsletter-subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.InvalidInput("Valid email is required"))
		return
	}
	msg, err := h.Svc.Subscribe(r.Context(), req.Email)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}
