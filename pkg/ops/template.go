package ops

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Render expands a configuration template against the supplied variables.
// Every variable referenced by the template must be defined; a missing
// key aborts the render instead of producing an incomplete configuration.
func Render(tmpl string, vars map[string]interface{}) (string, error) {
	t, err := template.New("config").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTemplate, err)
	}

	var buf strings.Builder
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTemplate, err)
	}
	return buf.String(), nil
}
