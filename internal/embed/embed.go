package embed

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

const (
	ConfigFileTemplate   = "carenote.yaml"
	DailySystemTemplate  = "daily_system.tmpl"
	DailyUserTemplate    = "daily_user.tmpl"
	WeeklySystemTemplate = "weekly_system.tmpl"
	WeeklyUserTemplate   = "weekly_user.tmpl"
)

//go:embed init/*
var InitFS embed.FS

//go:embed templates/*
var TemplatesFS embed.FS

// ConfigTemplateData fills init/carenote.yaml.
type ConfigTemplateData struct {
	Port       string
	DataDir    string
	AIProvider string
	LogLevel   string
}

// RenderInitConfig renders the default server config written by 'carenote init'.
func RenderInitConfig(data ConfigTemplateData) ([]byte, error) {
	buf, err := render(InitFS, "init/"+ConfigFileTemplate, data)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPrompt renders one of the embedded prompt templates.
func RenderPrompt(name string, data any) (string, error) {
	buf, err := render(TemplatesFS, "templates/"+name, data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

func render(fs embed.FS, path string, data any) (bytes.Buffer, error) {
	var buf bytes.Buffer
	file, err := fs.ReadFile(path)
	if err != nil {
		return buf, fmt.Errorf("failed to read embedded file: %w", err)
	}

	tmpl, err := template.New(path).Funcs(templateFuncs).Option("missingkey=error").Parse(string(file))
	if err != nil {
		return buf, fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return buf, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf, nil
}
