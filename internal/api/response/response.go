// Package response renders every API reply in one envelope:
//
//	{"status":"success","message":...,"data":...,"meta":...}
//	{"status":"error","message":...,"error":{"code":...,"details":...,"timestamp":...}}
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	defaultSuccessMessage = "Operation successful"
)

// now is replaced in tests.
var now = time.Now

func timestamp() string {
	return now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    any             `json:"data"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
}

type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// NewPaginationMeta computes page bounds. From and To are zero for an empty page.
func NewPaginationMeta(page, perPage, total int) PaginationMeta {
	m := PaginationMeta{CurrentPage: page, PerPage: perPage, Total: total, LastPage: 1}
	if perPage > 0 && total > 0 {
		m.LastPage = (total + perPage - 1) / perPage
	}
	first := (page-1)*perPage + 1
	if total > 0 && first <= total {
		m.From = first
		m.To = min(page*perPage, total)
	}
	return m
}

func Success(w http.ResponseWriter, data any, message string) {
	writeSuccess(w, http.StatusOK, data, message, nil)
}

func Created(w http.ResponseWriter, data any, message string) {
	writeSuccess(w, http.StatusCreated, data, message, nil)
}

func Paginated(w http.ResponseWriter, data any, meta PaginationMeta, message string) {
	writeSuccess(w, http.StatusOK, data, message, &meta)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string, meta *PaginationMeta) {
	if message == "" {
		message = defaultSuccessMessage
	}
	writeJSON(w, status, envelope{Status: statusSuccess, Message: message, Data: data, Meta: meta})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
