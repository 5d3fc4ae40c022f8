package handlers

import (
	"net/http"

	"worktime/middleware"
	"worktime/reconcile"
)

type ReconcileHandler struct {
	reconciler *reconcile.Reconciler
}

func NewReconcileHandler(reconciler *reconcile.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Trigger runs reconciliation synchronously and returns the aggregate
// result. Employees reconcile themselves; admins may name any user.
func (h *ReconcileHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username := user.Username
	if requested := r.URL.Query().Get("username"); requested != "" && requested != username {
		if !user.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		username = requested
	}

	result := h.reconciler.Reconcile(r.Context(), username)
	writeJSON(w, http.StatusOK, result)
}
