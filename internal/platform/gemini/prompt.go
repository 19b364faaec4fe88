package gemini

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/gamegen-api/internal/generation"
)

// promptData is the value passed to the prompt template.
type promptData struct {
	Prompt string
}

// loadPromptTemplate parses the template at path. An empty path yields nil,
// meaning prompts are sent unchanged.
func loadPromptTemplate(path string) (*template.Template, error) {
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, path, err)
	}

	return parsePromptTemplate(string(content))
}

func parsePromptTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// renderPrompt applies tmpl to prompt, or returns prompt as-is when tmpl is nil.
func renderPrompt(tmpl *template.Template, prompt string) (string, error) {
	if tmpl == nil {
		return prompt, nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Prompt: prompt}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
