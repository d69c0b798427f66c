package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/salesask/salesask/internal/auth"
	"github.com/salesask/salesask/internal/query"
	"github.com/salesask/salesask/internal/schema"
)

func handleListSales(deps Dependencies, timeout time.Duration, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SALES_NOT_CONFIGURED", "sales store is not configured", false, nil)
		return
	}
	if err := auth.Authorize(r.Context(), auth.RoleSalesReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "missing required role", false, nil)
		return
	}
	table, ok := deps.Schema.Table(schema.SalesTable)
	if !ok {
		writeError(r.Context(), w, http.StatusNotImplemented, "SALES_NOT_CONFIGURED", "sales table is not described", false, nil)
		return
	}

	limit, err := intParam(r, "limit", query.DefaultPageLimit)
	if err != nil || limit <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
		return
	}
	if limit > query.MaxPageLimit {
		limit = query.MaxPageLimit
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be a non-negative integer", false, nil)
		return
	}

	result, err := query.ListRecent(r.Context(), deps.Store, table, query.Page{Limit: limit, Offset: offset}, timeout)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "list sales failed", "error", err)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list sales", true, nil)
		return
	}

	records := result.Records()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   records,
		"count":  len(records),
		"limit":  limit,
		"offset": offset,
	})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
