package api

import (
	"net/http"

	"github.com/salesask/salesask/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := auth.Authorize(r.Context(), auth.RoleSalesReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "missing required role", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  deps.Schema.Version,
		"tables":   deps.Schema.Tables,
		"rendered": deps.Schema.Render(),
	})
}
