package controllers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/pkg/bind"
	"github.com/sesamoshop/tienda/pkg/middleware"
	"github.com/sesamoshop/tienda/pkg/response"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

// Login issues a session token for valid admin credentials.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	errs, err := bind.JSON(r, &body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	token, user, err := c.service.Login(clientIP(r), body.Username, body.Password)
	switch {
	case errors.Is(err, services.ErrRateLimited):
		response.Error(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, services.ErrBadCredentials):
		response.Error(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the presented token. Always answers 200.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	c.service.Logout(token)
	response.Success(w, map[string]string{"message": "Sesión cerrada"})
}

// Verify confirms the token is still valid and returns its user. Runs
// behind the auth middleware, so reaching it means the session checks out.
func (c *AuthController) Verify(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]interface{}{
		"valid": true,
		"user":  middleware.CurrentUser(r.Context()),
	})
}

// clientIP prefers the X-Forwarded-For chain head when a proxy fronts the
// server, falling back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
