package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxSession      = "session"
	ctxGuard        = "guard"
	ctxStorage      = "session_storage"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = ulid.Make().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Error()
		}

		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			event = event.Str("trace_id", sc.TraceID().String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(ctxRequestID)).
			Msg("HTTP request")
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// storage exposes the visitor's cookies as session storage. One instance
// is shared per request so writes made by the guard are seen by handlers.
func (s *Server) storage(c *gin.Context) *session.CookieStorage {
	if v, ok := c.Get(ctxStorage); ok {
		if st, ok := v.(*session.CookieStorage); ok {
			return st
		}
	}
	st := session.NewCookieStorage(c.Writer, c.Request, s.cookies)
	c.Set(ctxStorage, st)
	return st
}

func setSession(c *gin.Context, sess *session.Session) {
	c.Set(ctxSession, sess)
}

// GetSessionData returns the session attached by guardMiddleware
func GetSessionData(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(ctxSession)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

// currentUser reads the session without enforcing anything. Used by public
// pages to decide which navigation links to show.
func (s *Server) currentUser(c *gin.Context) *session.User {
	if sess, ok := GetSessionData(c); ok {
		return &sess.User
	}
	sess, err := session.GetSession(s.storage(c))
	if err != nil {
		return nil
	}
	return &sess.User
}

// guardMiddleware runs the session guard before every route in the group.
// It is redirect UX only; the API still checks the token and role.
func (s *Server) guardMiddleware(g *session.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		mount := g.NewMount()
		d := mount.Run(s.storage(c))
		s.metrics.ObserveGuard(g.Name(), d.State.String())

		if d.NormalizeErr != nil {
			s.logger.Warn().Err(d.NormalizeErr).Msg("Failed to normalize legacy session keys")
		}
		if d.Normalized {
			s.logger.Debug().Str("path", c.Request.URL.Path).Msg("Migrated legacy session keys")
		}

		c.Set(ctxGuard, g)
		rendered := mount.Render(func(sess *session.Session) {
			setSession(c, sess)
			c.Next()
		})
		if rendered {
			return
		}

		s.logger.Debug().
			AnErr("reason", d.Reason).
			Str("path", c.Request.URL.Path).
			Str("redirect", d.Redirect).
			Msg("Session guard redirect")

		target := d.Redirect
		if !errors.Is(d.Reason, session.ErrRoleMismatch) {
			target = withNext(target, c.Request)
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// loginPath is where an auth failure on this route sends the visitor
func loginPath(c *gin.Context) string {
	if v, ok := c.Get(ctxGuard); ok {
		if g, ok := v.(*session.Guard); ok && g.LoginPath != "" {
			return g.LoginPath
		}
	}
	return session.DefaultLoginPath
}

// handleAuthFailure is the single place that reacts to a 401/403 from the
// API: the stored credential is dropped and the visitor is sent to sign in.
// It reports whether err was an auth failure and a response was written.
func (s *Server) handleAuthFailure(c *gin.Context, err error) bool {
	if !apiclient.IsAuthFailure(err) {
		return false
	}

	s.logger.Info().Err(err).Str("path", c.Request.URL.Path).Msg("API rejected session, signing out")
	if cerr := session.ClearSession(s.storage(c)); cerr != nil {
		s.logger.Warn().Err(cerr).Msg("Failed to clear session")
	}

	c.Redirect(http.StatusSeeOther, withNext(loginPath(c), c.Request))
	c.Abort()
	return true
}

// withNext appends the current location so sign-in can send the visitor back
func withNext(target string, r *http.Request) string {
	if r.Method != http.MethodGet {
		return target
	}
	return target + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

// safeNext only allows local absolute paths as post-login redirects
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
