package research

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-crm/internal/model"
)

// defaultPromptTemplate is used when no template file is configured. The
// placeholders {city}, {lead_types} and {schema} are substituted at render
// time.
const defaultPromptTemplate = `You are a business research assistant. Find real, currently operating
small businesses in {city} that could become customers of a local services CRM.

Focus on these business categories: {lead_types}

For every business you find, collect the owner or primary contact name,
company name, and any public contact channels (email, phone, Instagram,
Telegram, website). Grade each lead cold, warm or hot based on how likely
they are to need outreach tooling, and add short notes on why.

Respond with a single JSON object matching this schema, and nothing else:

{schema}`

// PromptTemplate renders the research prompt for a city.
type PromptTemplate struct {
	text string
}

// promptFile is the on-disk template format.
type promptFile struct {
	Template string `yaml:"template"`
}

// DefaultPromptTemplate returns the built-in template.
func DefaultPromptTemplate() *PromptTemplate {
	return &PromptTemplate{text: defaultPromptTemplate}
}

// LoadPromptTemplate reads a yaml template file. An empty path yields the
// built-in default.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return DefaultPromptTemplate(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "research: read prompt template %s", path)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "research: parse prompt template %s", path)
	}
	if strings.TrimSpace(pf.Template) == "" {
		return nil, eris.Errorf("research: prompt template %s has no template field", path)
	}

	return &PromptTemplate{text: pf.Template}, nil
}

// Render substitutes the city, lead types and response schema into the
// template.
func (t *PromptTemplate) Render(city model.City, leadTypes []string) string {
	return strings.NewReplacer(
		"{city}", city.String(),
		"{lead_types}", strings.Join(leadTypes, ", "),
		"{schema}", LeadSchema,
	).Replace(t.text)
}
