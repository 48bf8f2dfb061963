package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/odyssey-erp/odyssey-reports/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NewEngine parses the embedded report templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").ParseFS(web.Templates, "templates/reports/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Execute writes the named template to w.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	if e == nil || e.templates == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
