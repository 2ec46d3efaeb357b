package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// sessionState reports what a guard would decide for this visitor, for
// scripts that want to hide links before navigating. ?role=admin checks
// the admin guard.
func (s *Server) sessionState(c *gin.Context) {
	g := &session.Guard{}
	if role := c.Query("role"); role != "" {
		r, err := session.ParseRole(role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		g.RequiredRole = r
		if r == session.RoleAdmin {
			g = session.AdminGuard()
		}
	}

	d := g.Check(s.storage(c))
	s.metrics.ObserveGuard(g.Name(), d.State.String())

	resp := gin.H{
		"state":    d.State.String(),
		"redirect": d.Redirect,
		"user":     nil,
	}
	if d.Session != nil && d.Authorized() {
		resp["user"] = d.Session.User
	}
	c.JSON(http.StatusOK, resp)
}
