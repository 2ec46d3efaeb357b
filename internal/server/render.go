package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/go-playground/validator/v10"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

//go:embed templates
var templateFS embed.FS

// templates holds one parsed set per page, each sharing the layout
type templates struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"percent": func(c float64) string {
		if c <= 1 {
			c *= 100
		}
		return fmt.Sprintf("%.1f%%", c)
	},
	"date": func(t any) string {
		switch v := t.(type) {
		case apiclient.Timestamp:
			t = v.Time
		case *apiclient.Timestamp:
			if v != nil {
				t = v.Time
			}
		}
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return "-"
			}
			return v.Format("2 Jan 2006")
		case *time.Time:
			if v == nil || v.IsZero() {
				return "-"
			}
			return v.Format("2 Jan 2006")
		}
		return "-"
	},
	"roleLabel": func(r any) string {
		s := string(session.Role(fmt.Sprint(r)).Normalize())
		if s == "" {
			return "-"
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"humanize": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

func loadTemplates() (*templates, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	t := &templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		page, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		t.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return t, nil
}

// render writes page wrapped in the layout. The current user, path and
// request id are added to data for the navigation bar.
func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	tmpl, ok := s.templates.pages[page]
	if !ok {
		s.logger.Error().Str("page", page).Msg("Unknown template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["User"]; !ok {
		data["User"] = s.currentUser(c)
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	data["Path"] = c.Request.URL.Path
	data["RequestID"] = c.GetString(ctxRequestID)
	data["Year"] = time.Now().Year()

	c.Render(status, render.HTML{Template: tmpl, Name: "layout.html", Data: data})
}

// renderError shows page with an inline banner and a retry link back to
// the current location
func (s *Server) renderError(c *gin.Context, status int, page string, data gin.H, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("API request failed")
	if data == nil {
		data = gin.H{}
	}
	data["Error"] = userMessage(err)
	data["RetryURL"] = c.Request.URL.RequestURI()
	s.render(c, status, page, data)
}

// userMessage turns an error into something safe to show on a page
func userMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return "The GradeFresh service is having trouble right now. Please try again."
		}
		return apiErr.Message
	}
	return "Could not reach the GradeFresh service. Check your connection and try again."
}

// fieldErrors maps form field names to readable validation messages
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_form"] = "Please check the form and try again."
		return out
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required."
		case "email":
			out[field] = "Enter a valid email address."
		case "min":
			out[field] = fmt.Sprintf("Must be at least %s characters.", fe.Param())
		case "max":
			out[field] = fmt.Sprintf("Must be at most %s characters.", fe.Param())
		case "oneof":
			out[field] = "Choose one of the listed options."
		default:
			out[field] = "Invalid value."
		}
	}
	return out
}
