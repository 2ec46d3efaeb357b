package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/report"
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

var (
	errNoImage       = errors.New("no image uploaded")
	errImageTooLarge = errors.New("image too large")
	errImageType     = errors.New("unsupported image type")
)

// ReportForm carries a prediction back from the results page so the PDF
// can be generated without calling the classifier again
type ReportForm struct {
	FileName       string  `form:"file_name" binding:"max=255"`
	ClassLabel     string  `form:"class_label" binding:"required"`
	Confidence     float64 `form:"confidence" binding:"min=0,max=100"`
	QualityCode    string  `form:"quality_code"`
	QualityStatus  string  `form:"quality_status"`
	Description    string  `form:"description" binding:"max=5000"`
	ExportSuitable bool    `form:"export_suitable"`
}

func (s *Server) qualityPage(c *gin.Context) {
	s.render(c, http.StatusOK, "quality", gin.H{"Title": "Fruit quality checker"})
}

func (s *Server) analyzeImage(c *gin.Context) {
	sess, _ := GetSessionData(c)
	page := gin.H{"Title": "Fruit quality checker"}

	name, contentType, data, err := readUpload(c)
	if err != nil {
		page["Error"] = uploadMessage(err)
		s.render(c, http.StatusUnprocessableEntity, "quality", page)
		return
	}

	pred, err := s.api.Predict(c.Request.Context(), sess.Token, name, contentType, bytes.NewReader(data))
	if err != nil {
		if s.handleAuthFailure(c, err) {
			return
		}
		s.renderError(c, http.StatusBadGateway, "quality", page, err)
		return
	}

	s.logger.Info().
		Str("user_id", sess.User.ID).
		Str("class_label", pred.ClassLabel).
		Float64("confidence", pred.Confidence).
		Msg("Image analyzed")

	page["FileName"] = name
	page["Prediction"] = pred
	s.render(c, http.StatusOK, "quality", page)
}

// readUpload returns the uploaded image after checking its size and sniffed type
func readUpload(c *gin.Context) (string, string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, errNoImage
	}
	if fh.Size > maxUploadSize {
		return "", "", nil, errImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return "", "", nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return "", "", nil, errImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return "", "", nil, errImageType
	}

	return fh.Filename, contentType, data, nil
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, errNoImage):
		return "Choose a fruit image to analyze."
	case errors.Is(err, errImageTooLarge):
		return "Images must be 10MB or smaller."
	case errors.Is(err, errImageType):
		return "Only PNG and JPEG images are supported."
	}
	return "The image could not be read. Please try another file."
}

func (s *Server) downloadReport(c *gin.Context) {
	sess, _ := GetSessionData(c)

	var form ReportForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusUnprocessableEntity, "quality", gin.H{
			"Title": "Fruit quality checker",
			"Error": "The report could not be generated. Analyze the image again.",
		})
		return
	}

	r := report.Report{
		Prediction: apiclient.Prediction{
			ClassLabel:     form.ClassLabel,
			Confidence:     form.Confidence,
			QualityCode:    form.QualityCode,
			QualityStatus:  form.QualityStatus,
			Description:    form.Description,
			ExportSuitable: form.ExportSuitable,
		},
		FileName:    form.FileName,
		InspectedBy: sess.User.Name,
		GeneratedAt: time.Now(),
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, r); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render report")
		s.render(c, http.StatusInternalServerError, "quality", gin.H{
			"Title": "Fruit quality checker",
			"Error": "The report could not be generated. Please try again.",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, r.DownloadName()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
