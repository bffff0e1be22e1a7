// Package render is the string-substitution seam used by the action
// dispatcher. The manager renders string leaves at dispatch time, not at
// timer-creation time, so values reflect the runtime context current when
// the timer fires.
//
// The concrete expression language is deliberately pluggable; Template is a
// small default built on text/template.
package render

import (
	"bytes"
	"os"
	"strings"
	"text/template"
	"time"
)

// Renderer substitutes expressions embedded in a single string value.
// Implementations must be safe for concurrent use.
type Renderer interface {
	RenderString(s string) (string, error)
}

// Nop returns a renderer that passes every value through unchanged.
func Nop() Renderer { return nopRenderer{} }

type nopRenderer struct{}

func (nopRenderer) RenderString(s string) (string, error) { return s, nil }

// Template renders "{{ ... }}" expressions with text/template.
//
// Vars supplies the runtime context per render call; built-in functions
// cover the common cases (now, env).
type Template struct {
	vars func() map[string]any
}

// NewTemplate builds a Template renderer. vars may be nil.
func NewTemplate(vars func() map[string]any) *Template {
	return &Template{vars: vars}
}

func (r *Template) RenderString(s string) (string, error) {
	// Fast path: plain strings stay untouched.
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	t, err := template.New("value").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": time.Now,
			"env": os.Getenv,
		}).
		Parse(s)
	if err != nil {
		return "", err
	}
	var data map[string]any
	if r.vars != nil {
		data = r.vars()
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
