package apiclient

import (
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and both login endpoints
type AuthResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Username    string     `json:"username"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
}

// Session converts the response into the cached credential
func (a *AuthResponse) Session() *session.Session {
	return &session.Session{
		Token: a.AccessToken,
		User: session.User{
			ID:       a.ID,
			Name:     a.Name,
			Email:    a.Email,
			Role:     session.Role(a.Role).Normalize(),
			Username: a.Username,
			Phone:    a.Phone,
		},
	}
}

// Stats are the admin dashboard counters
type Stats struct {
	TotalUsers int `json:"total_users"`
	Exporters  int `json:"exporters"`
	Importers  int `json:"importers"`
	Inspectors int `json:"inspectors"`
	Admins     int `json:"admins"`
}

// UserRecord is a user as listed in the back-office
type UserRecord struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Username  string     `json:"username"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// News is an article managed in the back-office
type News struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// NewsCreate is the body of POST /api/admin/news
type NewsCreate struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished bool   `json:"is_published"`
}

// NewsUpdate is the body of PUT /api/admin/news/{id}. Nil fields are left unchanged.
type NewsUpdate struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// Prediction is the classifier's verdict on an uploaded image
type Prediction struct {
	ClassLabel     string  `json:"class_label"`
	Confidence     float64 `json:"confidence"`
	QualityCode    string  `json:"quality_code"`
	QualityStatus  string  `json:"quality_status"`
	Description    string  `json:"description"`
	ExportSuitable bool    `json:"export_suitable"`
}
