package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
)

const publicNewsCacheKey = "gradefresh:news:public"

// ContactForm is the contact page form
type ContactForm struct {
	Name    string `form:"name" binding:"required,max=100"`
	Email   string `form:"email" binding:"required,email"`
	Subject string `form:"subject" binding:"required,max=200"`
	Message string `form:"message" binding:"required,max=5000"`
}

func (s *Server) homePage(c *gin.Context) {
	s.render(c, http.StatusOK, "home", gin.H{"Title": "Fruit quality inspection"})
}

func (s *Server) aboutPage(c *gin.Context) {
	s.render(c, http.StatusOK, "about", gin.H{
		"Title": "About us",
		"About": s.content.About,
	})
}

func (s *Server) faqPage(c *gin.Context) {
	query := c.Query("q")
	faq := s.content.FAQ.Filter(query)

	s.render(c, http.StatusOK, "faq", gin.H{
		"Title": "Frequently asked questions",
		"Query": query,
		"FAQ":   faq,
		"Count": faq.Count(),
	})
}

func (s *Server) contactPage(c *gin.Context) {
	s.render(c, http.StatusOK, "contact", gin.H{
		"Title":   "Contact us",
		"Contact": s.content.Contact,
		"Form":    ContactForm{},
	})
}

// submitContact validates and logs the message. There is no API endpoint
// for enquiries yet, so the log is where support picks them up.
func (s *Server) submitContact(c *gin.Context) {
	var form ContactForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusUnprocessableEntity, "contact", gin.H{
			"Title":   "Contact us",
			"Contact": s.content.Contact,
			"Form":    form,
			"Errors":  fieldErrors(err),
		})
		return
	}

	s.logger.Info().
		Str("name", form.Name).
		Str("email", form.Email).
		Str("subject", form.Subject).
		Int("message_length", len(form.Message)).
		Msg("Contact form submitted")

	s.render(c, http.StatusOK, "contact", gin.H{
		"Title":     "Contact us",
		"Contact":   s.content.Contact,
		"Form":      ContactForm{},
		"Submitted": true,
	})
}

func (s *Server) newsPage(c *gin.Context) {
	news, err := s.publicNews(c.Request.Context())
	if err != nil {
		s.renderError(c, http.StatusBadGateway, "news", gin.H{"Title": "News"}, err)
		return
	}

	s.render(c, http.StatusOK, "news", gin.H{
		"Title": "News",
		"News":  news,
	})
}

// publicNews returns published articles newest first, served from Redis
// when a fresh copy is cached
func (s *Server) publicNews(ctx context.Context) ([]apiclient.News, error) {
	var news []apiclient.News
	if s.cache.GetJSON(ctx, publicNewsCacheKey, &news) {
		return news, nil
	}

	news, err := s.api.PublicNews(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(news, func(i, j int) bool {
		return news[i].CreatedAt.After(news[j].CreatedAt.Time)
	})

	s.cache.SetJSON(ctx, publicNewsCacheKey, news, s.config.Redis.NewsCacheTTL)
	return news, nil
}

// invalidateNews drops the cached public list after an admin edit
func (s *Server) invalidateNews(ctx context.Context) {
	s.cache.Delete(ctx, publicNewsCacheKey)
}
