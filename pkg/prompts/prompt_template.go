package prompts

import (
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
	"github.com/stormwatch/agentic/pkg/llms"
)

// ErrInputVariableMissing is returned when a declared input variable is
// absent from the format values.
var ErrInputVariableMissing = errors.New("missing input variable")

// PromptTemplate is a jinja-style template with a declared set of input
// variables, rendered into the system prompt.
type PromptTemplate struct {
	// Template is the prompt template source.
	Template string
	// InputVariables is a list of variable names the prompt template expects.
	InputVariables []string
}

var _ FormatPrompter = (*PromptTemplate)(nil)

// NewPromptTemplate returns a new prompt template.
func NewPromptTemplate(template string, inputVariables []string) *PromptTemplate {
	return &PromptTemplate{
		Template:       template,
		InputVariables: inputVariables,
	}
}

// Format renders the template with the given values.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, v := range p.InputVariables {
		if _, ok := values[v]; !ok {
			return "", errors.WithMessagef(ErrInputVariableMissing, "%q", v)
		}
	}

	tpl, err := gonja.FromString(p.Template)
	if err != nil {
		return "", errors.WithMessage(err, "failed to parse prompt template")
	}
	out, err := tpl.Execute(gonja.Context(values))
	if err != nil {
		return "", errors.WithMessage(err, "failed to render prompt template")
	}
	return out, nil
}

// FormatPrompt renders the template into a prompt value.
func (p *PromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	formatted, err := p.Format(values)
	if err != nil {
		return nil, err
	}
	return StringPromptValue(formatted), nil
}

// GetInputVariables returns the input variables the prompt expects.
func (p *PromptTemplate) GetInputVariables() []string {
	return p.InputVariables
}
