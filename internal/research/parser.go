package research

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/pkg/anthropic"
)

// leadsMarker is the substring used to locate the payload when the agent
// wraps it in prose or echoes the schema before answering.
const leadsMarker = `"leads": [`

// previewLen bounds how much of a failed fragment is logged.
const previewLen = 500

// Parser turns raw agent output into a structured result. Three strategies
// are tried in order: direct parse, marker extraction, then a model-assisted
// re-extraction through the fallback client.
type Parser struct {
	fallback anthropic.Client
	model    string
}

// NewParser creates a parser. fallback may be nil, in which case strategy
// three is skipped and marker-extraction failures are final.
func NewParser(fallback anthropic.Client, fallbackModel string) *Parser {
	return &Parser{fallback: fallback, model: fallbackModel}
}

// Parse extracts candidate leads from raw text. It never panics; every
// failure path resolves to an error wrapping ErrParseFailed.
func (p *Parser) Parse(ctx context.Context, raw string) (*model.ResearchResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, eris.Wrap(ErrParseFailed, "research: empty raw text")
	}

	// Strategy 1: the whole text is the payload.
	if res, err := decodeResult(raw); err == nil {
		return res, nil
	}

	// Strategy 2: locate the leads array inside surrounding prose.
	if fragment, ok := extractLeadsFragment(raw); ok {
		res, err := decodeResult(fragment)
		if err == nil {
			return res, nil
		}
		zap.L().Warn("marker extraction failed",
			zap.String("fragment_preview", preview(fragment)),
			zap.Error(err),
		)
	}

	// Strategy 3: ask a non-research model to re-extract the payload.
	if p.fallback == nil {
		return nil, eris.Wrap(ErrParseFailed, "research: no parse strategy succeeded and no fallback client configured")
	}
	res, err := p.reextract(ctx, raw)
	if err != nil {
		return nil, eris.Wrap(eris.Wrap(ErrParseFailed, err.Error()), "research: all parse strategies exhausted")
	}
	return res, nil
}

// decodeResult parses text as the expected schema and validates it.
func decodeResult(text string) (*model.ResearchResult, error) {
	var res model.ResearchResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, eris.Wrap(err, "research: unmarshal result")
	}
	if res.Leads == nil {
		return nil, eris.New("research: result has no leads array")
	}
	for i, lead := range res.Leads {
		if strings.TrimSpace(lead.Name) == "" {
			return nil, eris.Errorf("research: lead %d has no name", i)
		}
	}
	return &res, nil
}

// extractLeadsFragment cuts the text from the leads marker to the end,
// strips trailing code fences and whitespace, and reconstitutes an object.
func extractLeadsFragment(raw string) (string, bool) {
	idx := strings.Index(raw, leadsMarker)
	if idx < 0 {
		return "", false
	}

	fragment := strings.TrimSpace(raw[idx:])
	for strings.HasSuffix(fragment, "```") {
		fragment = strings.TrimSpace(strings.TrimSuffix(fragment, "```"))
	}

	return "{" + fragment + "}", true
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen]
	}
	return s
}

const reextractSystem = `You extract structured data from messy research reports.
Respond with a single JSON object matching the provided schema. No prose, no code fences.`

func (p *Parser) reextract(ctx context.Context, raw string) (*model.ResearchResult, error) {
	prompt := "Extract every business lead mentioned in the following research report.\n\n" +
		"Schema:\n" + LeadSchema + "\n\nReport:\n" + raw

	resp, err := p.fallback.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: 8192,
		System:    reextractSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: fallback extraction call")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, eris.New("research: fallback extraction returned empty response")
	}

	// Models occasionally fence their output despite instructions.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return decodeResult(strings.TrimSpace(text))
}
