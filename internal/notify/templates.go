package notify

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

const (
	TemplateAccountVerification = "account_verification"
	TemplatePasswordReset       = "password_reset"
	TemplatePasswordChanged     = "password_changed"
)

type messageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Templates renders notification texts from the embedded YAML files.
type Templates struct {
	byName map[string]compiled
}

// TemplateData is the set of fields the message templates may reference.
type TemplateData struct {
	AppName string
	OTP     string
	Minutes int
	Name    string
}

func NewTemplates() (*Templates, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	t := &Templates{byName: make(map[string]compiled)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var raw map[string]messageTemplate
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		for name, mt := range raw {
			c := compiled{}
			if c.body, err = template.New(name).Option("missingkey=error").Parse(mt.Body); err != nil {
				return nil, fmt.Errorf("template %s body: %w", name, err)
			}
			if mt.Subject != "" {
				if c.subject, err = template.New(name + "_subject").Parse(mt.Subject); err != nil {
					return nil, fmt.Errorf("template %s subject: %w", name, err)
				}
			}
			t.byName[name] = c
		}
	}
	return t, nil
}

// Render returns the subject (empty when the template has none) and body.
func (t *Templates) Render(name string, data TemplateData) (string, string, error) {
	c, ok := t.byName[name]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", name)
	}

	var body strings.Builder
	if err := c.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	if c.subject == nil {
		return "", body.String(), nil
	}
	var subject strings.Builder
	if err := c.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	return subject.String(), body.String(), nil
}
