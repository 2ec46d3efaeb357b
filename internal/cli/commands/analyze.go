package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradefresh-dev/gradefresh/internal/report"
)

const maxImageSize = 10 << 20

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd(g *Globals) *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Grade a fruit image",
		Long: `Upload a PNG or JPEG image to the quality classifier and print the
result. Use --pdf to also save the result as a PDF report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, args[0], pdfPath)
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Write a PDF report to this path")

	return cmd
}

func runAnalyze(cmd *cobra.Command, g *Globals, imagePath, pdfPath string) error {
	st, err := g.Storage()
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}

	sess, err := requireSession(st, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageSize {
		return fmt.Errorf("image is %d bytes; the limit is 10MB", len(data))
	}
	contentType := http.DetectContentType(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return fmt.Errorf("unsupported image type %s (PNG and JPEG only)", contentType)
	}

	fileName := filepath.Base(imagePath)
	pred, err := g.Client().Predict(cmd.Context(), sess.Token, fileName, contentType, bytes.NewReader(data))
	if err != nil {
		return apiFailure(st, "analysis", err)
	}

	r := report.Report{
		Prediction:  *pred,
		FileName:    fileName,
		InspectedBy: sess.User.Name,
		GeneratedAt: time.Now(),
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range r.Rows() {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if pred.Description != "" {
		fmt.Fprintf(out, "\n%s\n", pred.Description)
	}

	if pdfPath == "" {
		return nil
	}

	f, err := os.Create(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Render(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Report saved to %s\n", pdfPath)
	return nil
}
