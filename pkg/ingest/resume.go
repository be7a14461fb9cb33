package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ResumeURL is the page URL attached to resume chunks.
const ResumeURL = "/resume"

// LoadResume reads a resume from a PDF or a plain text/markdown file.
func LoadResume(path, title string) (Source, error) {
	var (
		text string
		kind string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(path)
		kind = "pdf"
	default:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
		kind = "text"
	}
	if err != nil {
		return Source{}, fmt.Errorf("load resume %s: %w", path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Source{}, fmt.Errorf("load resume %s: no text content", path)
	}
	return Source{
		Path: path,
		Text: text,
		Metadata: map[string]string{
			"source": "resume",
			"type":   kind,
			"title":  title,
			"url":    ResumeURL,
		},
	}, nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
