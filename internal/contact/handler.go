package contact

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/consultorio-api/internal/common"
)

// Handler exposes the contact form endpoint.
type Handler struct {
	Svc *Service
}

// Send handles POST /api/send-email.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		common.WriteError(w, common.InvalidInput("Missing required fields"))
		return
	}
	if _, err := h.Svc.Send(r.Context(), msg); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "message": MsgSent})
}
