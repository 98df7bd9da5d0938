package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/iditgo/internal/auth"
	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/models"
)

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.auth.ListUsers(req.Context())
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (r *Router) createUser(w http.ResponseWriter, req *http.Request) {
	var in auth.UserInput
	if !decodeJSON(w, req, &in) {
		return
	}
	user, err := r.auth.CreateUser(req.Context(), in)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (r *Router) updateUser(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var in auth.UserUpdate
	if !decodeJSON(w, req, &in) {
		return
	}
	// an admin cannot lock themselves out
	if id == currentUserID(req) && ((in.IsActive != nil && !*in.IsActive) || (in.Role != nil && !strings.EqualFold(strings.TrimSpace(*in.Role), models.RoleAdmin))) {
		r.respondServiceError(w, req, errs.InvalidOperation("you cannot deactivate or demote yourself"))
		return
	}
	user, err := r.auth.UpdateUser(req.Context(), id, in)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (r *Router) deleteUser(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if id == currentUserID(req) {
		r.respondServiceError(w, req, errs.InvalidOperation("you cannot delete yourself"))
		return
	}
	if err := r.auth.DeleteUser(req.Context(), id); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
