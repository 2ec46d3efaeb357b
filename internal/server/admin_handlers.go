package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// NewsForm is used by both the create and edit pages
type NewsForm struct {
	Title       string `form:"title" binding:"required,max=200"`
	Content     string `form:"content" binding:"required,max=20000"`
	IsPublished bool   `form:"is_published"`
}

var flashMessages = map[string]string{
	"user_deleted": "User deleted successfully.",
	"news_created": "News article created.",
	"news_updated": "News article updated.",
	"news_deleted": "News article deleted.",
}

func flash(c *gin.Context) string {
	return flashMessages[c.Query("flash")]
}

func (s *Server) dashboardPage(c *gin.Context) {
	sess, _ := GetSessionData(c)
	page := gin.H{"Title": "Dashboard"}

	if exp, ok := session.TokenExpiry(sess.Token); ok {
		page["SessionExpires"] = exp
	}

	stats, err := s.api.Stats(c.Request.Context(), sess.Token)
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		s.renderError(c, http.StatusBadGateway, "dashboard", page, err)
		return
	}

	page["Stats"] = stats
	s.render(c, http.StatusOK, "dashboard", page)
}

func (s *Server) usersPage(c *gin.Context) {
	sess, _ := GetSessionData(c)
	page := gin.H{"Title": "Users", "Flash": flash(c), "SelfID": sess.User.ID}

	users, err := s.api.ListUsers(c.Request.Context(), sess.Token)
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		s.renderError(c, http.StatusBadGateway, "users", page, err)
		return
	}

	page["Users"] = users
	s.render(c, http.StatusOK, "users", page)
}

func (s *Server) deleteUser(c *gin.Context) {
	sess, _ := GetSessionData(c)
	userID := c.Param("id")

	// Prevent deleting self
	if userID == sess.User.ID {
		s.renderUsersError(c, sess, http.StatusBadRequest, "You cannot delete your own account.")
		return
	}

	if err := s.api.DeleteUser(c.Request.Context(), sess.Token, userID); err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		if errors.Is(err, apiclient.ErrNotFound) {
			s.renderUsersError(c, sess, http.StatusNotFound, "User not found.")
			return
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		s.renderUsersError(c, sess, http.StatusBadGateway, userMessage(err))
		return
	}

	s.logger.Info().Str("user_id", userID).Str("deleted_by", sess.User.ID).Msg("User deleted")
	c.Redirect(http.StatusSeeOther, "/admin/users?flash=user_deleted")
}

// renderUsersError re-lists users with an error banner above the table
func (s *Server) renderUsersError(c *gin.Context, sess *session.Session, status int, msg string) {
	page := gin.H{"Title": "Users", "Error": msg, "RetryURL": "/admin/users", "SelfID": sess.User.ID}
	if users, err := s.api.ListUsers(c.Request.Context(), sess.Token); err == nil {
		page["Users"] = users
	}
	s.render(c, status, "users", page)
}

func (s *Server) adminNewsPage(c *gin.Context) {
	sess, _ := GetSessionData(c)
	page := gin.H{"Title": "News", "Flash": flash(c)}

	news, err := s.api.ListNews(c.Request.Context(), sess.Token)
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		s.renderError(c, http.StatusBadGateway, "admin_news", page, err)
		return
	}

	page["News"] = news
	s.render(c, http.StatusOK, "admin_news", page)
}

func (s *Server) createNewsPage(c *gin.Context) {
	s.render(c, http.StatusOK, "news_form", gin.H{
		"Title": "Create news",
		"Form":  NewsForm{IsPublished: true},
	})
}

func (s *Server) createNews(c *gin.Context) {
	sess, _ := GetSessionData(c)
	page := gin.H{"Title": "Create news"}

	var form NewsForm
	if err := c.ShouldBind(&form); err != nil {
		page["Form"] = form
		page["Errors"] = fieldErrors(err)
		s.render(c, http.StatusUnprocessableEntity, "news_form", page)
		return
	}

	created, err := s.api.CreateNews(c.Request.Context(), sess.Token, apiclient.NewsCreate{
		Title:       form.Title,
		Content:     form.Content,
		IsPublished: form.IsPublished,
	})
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		page["Form"] = form
		s.renderFormError(c, "news_form", page, err)
		return
	}

	s.invalidateNews(c.Request.Context())
	s.logger.Info().Str("news_id", created.ID).Str("created_by", sess.User.ID).Msg("News created")
	c.Redirect(http.StatusSeeOther, "/admin/news?flash=news_created")
}

func (s *Server) editNewsPage(c *gin.Context) {
	sess, _ := GetSessionData(c)
	id := c.Param("id")
	page := gin.H{"Title": "Edit news", "ID": id, "Form": NewsForm{}}

	news, err := s.api.GetNews(c.Request.Context(), sess.Token, id)
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		status := http.StatusBadGateway
		if errors.Is(err, apiclient.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.renderError(c, status, "news_form", page, err)
		return
	}

	page["Form"] = NewsForm{Title: news.Title, Content: news.Content, IsPublished: news.IsPublished}
	s.render(c, http.StatusOK, "news_form", page)
}

func (s *Server) updateNews(c *gin.Context) {
	sess, _ := GetSessionData(c)
	id := c.Param("id")
	page := gin.H{"Title": "Edit news", "ID": id}

	var form NewsForm
	if err := c.ShouldBind(&form); err != nil {
		page["Form"] = form
		page["Errors"] = fieldErrors(err)
		s.render(c, http.StatusUnprocessableEntity, "news_form", page)
		return
	}

	_, err := s.api.UpdateNews(c.Request.Context(), sess.Token, id, apiclient.NewsUpdate{
		Title:       &form.Title,
		Content:     &form.Content,
		IsPublished: &form.IsPublished,
	})
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		page["Form"] = form
		s.renderFormError(c, "news_form", page, err)
		return
	}

	s.invalidateNews(c.Request.Context())
	s.logger.Info().Str("news_id", id).Str("updated_by", sess.User.ID).Msg("News updated")
	c.Redirect(http.StatusSeeOther, "/admin/news?flash=news_updated")
}

func (s *Server) deleteNews(c *gin.Context) {
	sess, _ := GetSessionData(c)
	id := c.Param("id")

	if err := s.api.DeleteNews(c.Request.Context(), sess.Token, id); err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		s.renderError(c, http.StatusBadGateway, "admin_news", gin.H{"Title": "News"}, err)
		return
	}

	s.invalidateNews(c.Request.Context())
	s.logger.Info().Str("news_id", id).Str("deleted_by", sess.User.ID).Msg("News deleted")
	c.Redirect(http.StatusSeeOther, "/admin/news?flash=news_deleted")
}
