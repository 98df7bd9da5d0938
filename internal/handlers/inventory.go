package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/ledger"
	"github.com/xelth-com/iditgo/internal/services/export"
)

// InventoryRequest is a batch of counted quantities
type InventoryRequest struct {
	Entries []ledger.Entry `json:"entries"`
}

// getInventory supports ?locationId= and ?parentId= (whole subtree)
func (r *Router) getInventory(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	rows, err := r.ledger.Current(req.Context(), ledger.Filter{
		LocationID: q.Get("locationId"),
		ParentID:   q.Get("parentId"),
	})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// applyInventory records a batch on behalf of the token subject
func (r *Router) applyInventory(w http.ResponseWriter, req *http.Request) {
	var invReq InventoryRequest
	if !decodeJSON(w, req, &invReq) {
		return
	}
	result, err := r.ledger.ApplyEntries(req.Context(), invReq.Entries, currentUserID(req))
	if err != nil {
		if errors.Is(err, errs.ErrAuthentication) {
			respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "USER_NOT_FOUND",
				"message": errs.Message(err),
			})
			return
		}
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      result.Message(),
		"entries":      result.Entries,
		"applied":      result.Applied,
		"changed":      result.Changed,
		"changedCount": result.Changed,
	})
}

func (r *Router) inventorySummary(w http.ResponseWriter, req *http.Request) {
	summary, err := r.ledger.Summary(req.Context())
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// inventoryLogs supports ?limit=&locationId=&productId=&userId=&from=&to=
func (r *Router) inventoryLogs(w http.ResponseWriter, req *http.Request) {
	f, err := parseLogFilter(req)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	logs, err := r.ledger.Logs(req.Context(), f)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// inventoryState replays the log up to ?at=
func (r *Router) inventoryState(w http.ResponseWriter, req *http.Request) {
	at, err := parseTime(req.URL.Query().Get("at"))
	if err != nil || at == nil {
		r.respondServiceError(w, req, errs.Validation("at must be an RFC3339 timestamp or a date"))
		return
	}
	rows, err := r.ledger.StateAt(req.Context(), *at)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"at":   at.UTC(),
		"rows": rows,
	})
}

// exportInventory downloads the current inventory and recent changes as XLSX
func (r *Router) exportInventory(w http.ResponseWriter, req *http.Request) {
	rows, err := r.ledger.Current(req.Context(), ledger.Filter{})
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	f, err := parseLogFilter(req)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	if f.Limit == 0 {
		f.Limit = 1000
	}
	logs, err := r.ledger.Logs(req.Context(), f)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}

	now := r.now().UTC()
	data, err := export.InventoryWorkbook(rows, logs, now)
	if err != nil {
		r.respondServiceError(w, req, errs.Persistence("render workbook", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="inventory-%s.xlsx"`, now.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseLogFilter(req *http.Request) (ledger.LogFilter, error) {
	q := req.URL.Query()
	f := ledger.LogFilter{
		LocationID: q.Get("locationId"),
		ProductID:  q.Get("productId"),
		UserID:     q.Get("userId"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return f, errs.Validation("limit must be a positive number")
		}
		f.Limit = n
	}
	var err error
	if f.From, err = parseTime(q.Get("from")); err != nil {
		return f, errs.Validation("from must be an RFC3339 timestamp or a date")
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		return f, errs.Validation("to must be an RFC3339 timestamp or a date")
	}
	return f, nil
}

// parseTime accepts RFC3339 or YYYY-MM-DD (start of day UTC). Empty is nil.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
