package reqconfig

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// RenderTemplate substitutes {{name}} placeholders in a system prompt with
// values from vars. A placeholder with no matching variable is left as
// literal text, so a prompt that legitimately contains braces survives a
// request that supplies no variables.
func RenderTemplate(prompt string, vars map[string]string) string {
	if prompt == "" || !strings.Contains(prompt, "{{") {
		return prompt
	}
	return placeholderRe.ReplaceAllStringFunc(prompt, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
