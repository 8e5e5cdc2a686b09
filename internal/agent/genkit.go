package agent

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// GenkitGenerator is the production Generator backed by a Genkit model.
// It instructs the model to answer in the decision JSON shape and
// parses the reply; a malformed reply surfaces as a parse error the
// loop can feed back as an observation.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitGenerator creates a generator for the given provider-qualified
// model name (e.g. "googleai/gemini-2.5-flash").
func NewGenkitGenerator(g *genkit.Genkit, modelName string) (*GenkitGenerator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GenkitGenerator{g: g, modelName: modelName}, nil
}

// Generate runs one model call and parses the decision.
func (gg *GenkitGenerator) Generate(ctx context.Context, req *Request) (*Decision, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithSystem(req.System),
		ai.WithPrompt(req.Prompt),
	)
	if err != nil {
		return nil, hrerr.Externalf("language model call failed: %v", err)
	}

	decision, err := ParseDecision(resp.Text())
	if err != nil {
		return nil, hrerr.AgentExecutionf("parsing model reply: %v", err)
	}
	return decision, nil
}
