package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// RegisterForm is the account creation form
type RegisterForm struct {
	Name     string `form:"name" binding:"required,max=100"`
	Phone    string `form:"phone" binding:"required,max=30"`
	Email    string `form:"email" binding:"required,email"`
	Role     string `form:"role" binding:"required,oneof=exporter importer inspector exporters importers inspectors"`
	Username string `form:"username" binding:"required,min=3,max=50"`
	Password string `form:"password" binding:"required,min=6"`
}

// SignInForm is shared by the user and admin sign-in pages
type SignInForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func (s *Server) registerPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register", gin.H{
		"Title": "Create account",
		"Roles": session.RegistrableRoles,
		"Form":  RegisterForm{},
	})
}

func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	page := gin.H{"Title": "Create account", "Roles": session.RegistrableRoles}

	if err := c.ShouldBind(&form); err != nil {
		form.Password = ""
		page["Form"] = form
		page["Errors"] = fieldErrors(err)
		s.render(c, http.StatusUnprocessableEntity, "register", page)
		return
	}

	resp, err := s.api.Register(c.Request.Context(), apiclient.RegisterRequest{
		Name:     form.Name,
		Phone:    form.Phone,
		Email:    form.Email,
		Role:     session.Role(form.Role).Plural(),
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		form.Password = ""
		page["Form"] = form
		s.renderFormError(c, "register", page, err)
		return
	}

	if !s.startSession(c, resp) {
		return
	}

	s.logger.Info().Str("user_id", resp.ID).Str("email", resp.Email).Msg("User registered")
	c.Redirect(http.StatusSeeOther, "/quality")
}

func (s *Server) signInPage(c *gin.Context) {
	s.render(c, http.StatusOK, "signin", gin.H{
		"Title": "Sign in",
		"Form":  SignInForm{Next: c.Query("next")},
	})
}

func (s *Server) signIn(c *gin.Context) {
	var form SignInForm
	page := gin.H{"Title": "Sign in"}

	if err := c.ShouldBind(&form); err != nil {
		form.Password = ""
		page["Form"] = form
		page["Errors"] = fieldErrors(err)
		s.render(c, http.StatusUnprocessableEntity, "signin", page)
		return
	}

	resp, err := s.api.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		form.Password = ""
		page["Form"] = form
		s.renderFormError(c, "signin", page, err)
		return
	}

	if !s.startSession(c, resp) {
		return
	}

	s.logger.Info().Str("user_id", resp.ID).Msg("User signed in")

	fallback := "/quality"
	if session.Role(resp.Role).Is(session.RoleAdmin) {
		fallback = "/admin/dashboard"
	}
	c.Redirect(http.StatusSeeOther, safeNext(form.Next, fallback))
}

func (s *Server) adminLoginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "admin_login", gin.H{
		"Title": "Admin sign in",
		"Form":  SignInForm{Next: c.Query("next")},
	})
}

func (s *Server) adminLogin(c *gin.Context) {
	var form SignInForm
	page := gin.H{"Title": "Admin sign in"}

	if err := c.ShouldBind(&form); err != nil {
		form.Password = ""
		page["Form"] = form
		page["Errors"] = fieldErrors(err)
		s.render(c, http.StatusUnprocessableEntity, "admin_login", page)
		return
	}

	resp, err := s.api.AdminLogin(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		form.Password = ""
		page["Form"] = form
		if errors.Is(err, apiclient.ErrForbidden) {
			page["Error"] = "This account does not have admin privileges."
			s.render(c, http.StatusForbidden, "admin_login", page)
			return
		}
		s.renderFormError(c, "admin_login", page, err)
		return
	}

	if !s.startSession(c, resp) {
		return
	}

	s.logger.Info().Str("user_id", resp.ID).Msg("Admin signed in")
	c.Redirect(http.StatusSeeOther, safeNext(form.Next, "/admin/dashboard"))
}

func (s *Server) logout(c *gin.Context) {
	if err := session.ClearSession(s.storage(c)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear session")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// startSession stores the credential from a successful sign-in. It writes
// an error page and returns false if the response is unusable.
func (s *Server) startSession(c *gin.Context, resp *apiclient.AuthResponse) bool {
	if err := session.SetSession(s.storage(c), resp.Session()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store session")
		s.render(c, http.StatusBadGateway, "signin", gin.H{
			"Title": "Sign in",
			"Form":  SignInForm{},
			"Error": "Sign-in succeeded but no session could be started. Please try again.",
		})
		return false
	}
	return true
}

// renderFormError shows an API failure above a form. Client errors carry
// the API's own message; the status mirrors the API's for 4xx responses.
func (s *Server) renderFormError(c *gin.Context, page string, data gin.H, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		data["Error"] = apiErr.Message
		s.render(c, apiErr.StatusCode, page, data)
		return
	}
	s.renderError(c, http.StatusBadGateway, page, data, err)
}
