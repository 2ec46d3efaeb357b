// Package content holds the static marketing copy shown on public pages
package content

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultYAML []byte

type Content struct {
	About   About         `yaml:"about"`
	FAQ     FAQ           `yaml:"faq"`
	Contact ContactDetail `yaml:"contact"`
}

type About struct {
	Headline string  `yaml:"headline"`
	Mission  string  `yaml:"mission"`
	Values   []Value `yaml:"values"`
}

type Value struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

type ContactDetail struct {
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Address string `yaml:"address"`
}

// FAQ is an ordered list of question categories
type FAQ []Category

type Category struct {
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

type Question struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Parse decodes content from YAML
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	return &c, nil
}

// Default returns the embedded site content
func Default() (*Content, error) {
	return Parse(defaultYAML)
}

// Filter keeps questions whose question or answer contains term, ignoring
// case. Categories left empty are dropped. An empty term returns f unchanged.
func (f FAQ) Filter(term string) FAQ {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return f
	}

	var out FAQ
	for _, cat := range f {
		var matched []Question
		for _, q := range cat.Questions {
			if strings.Contains(strings.ToLower(q.Question), term) ||
				strings.Contains(strings.ToLower(q.Answer), term) {
				matched = append(matched, q)
			}
		}
		if len(matched) > 0 {
			out = append(out, Category{Title: cat.Title, Questions: matched})
		}
	}
	return out
}

// Count returns the number of questions
func (f FAQ) Count() int {
	n := 0
	for _, cat := range f {
		n += len(cat.Questions)
	}
	return n
}
