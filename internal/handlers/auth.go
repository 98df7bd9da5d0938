package handlers

import (
	"net/http"

	"github.com/xelth-com/iditgo/internal/auth"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PinRequest represents a PIN login from a floor tablet
type PinRequest struct {
	Pin string `json:"pin"`
}

// pinLogin handles 4-digit PIN login
func (r *Router) pinLogin(w http.ResponseWriter, req *http.Request) {
	var pinReq PinRequest
	if !decodeJSON(w, req, &pinReq) {
		return
	}
	session, err := r.auth.PinLogin(req.Context(), pinReq.Pin)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// login handles email and password login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !decodeJSON(w, req, &loginReq) {
		return
	}
	session, err := r.auth.Login(req.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// register handles user registration
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq auth.RegisterInput
	if !decodeJSON(w, req, &regReq) {
		return
	}
	session, err := r.auth.Register(req.Context(), regReq)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}
