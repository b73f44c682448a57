package http

import (
	"net/http"
	"strings"

	"expenseflow/internal/core"
	"expenseflow/internal/services"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, sess, err := s.accounts.Signup(r.Context(), services.SignupForm{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Country:     req.Country,
		Currency:    req.Currency,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(sessionResponse{User: toUserResponse(user), Token: sess.Token}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, sess, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(sessionResponse{User: toUserResponse(user), Token: sess.Token}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusAccepted).
		Body(map[string]string{"status": "reset email queued"}).
		Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	NewJSONResponse().
		Body(map[string]any{"user": toUserResponse(user), "demoMode": s.accounts.DemoMode()}).
		Write(w)
}

func (s *Server) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	var req switchRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.accounts.SwitchRole(r.Context(), user, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toUserResponse(updated)).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	users, err := s.accounts.CompanyUsers(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"users": toUserResponses(users)}).Write(w)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(r.Context())
	if !ok {
		writeError(w, r, core.ErrUnauthorized)
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.accounts.CreateUser(r.Context(), admin, services.NewUserForm{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toUserResponse(user)).Write(w)
}
