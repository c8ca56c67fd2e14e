package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/service"
)

// AuditTrailHandler отдает историю событий безопасности пользователя.
// Endpoint внутренний, для админки и разборов инцидентов.
type AuditTrailHandler struct {
	auditSvc service.AuditServiceInterface
}

func NewAuditTrailHandler(auditSvc service.AuditServiceInterface) *AuditTrailHandler {
	return &AuditTrailHandler{auditSvc: auditSvc}
}

// GetUserTrail обрабатывает GET /audit/trail?user_id=<id>&limit=<n>
func (h *AuditTrailHandler) GetUserTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	// Лимит вне диапазона сервис приведет к значению по умолчанию
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	records, err := h.auditSvc.GetUserTrail(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to load audit trail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *AuditTrailHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/audit/trail", h.GetUserTrail)
}
