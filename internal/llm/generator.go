package llm

import "context"

// Generator binds a Client to one model tier, giving the single
// prompt-in/text-out function the tailoring orchestrator consumes.
type Generator struct {
	Client Client
	Tier   ModelTier
}

// NewGenerator returns a Generator for the given tier; an empty tier means standard.
func NewGenerator(client Client, tier ModelTier) *Generator {
	if tier == "" {
		tier = TierStandard
	}
	return &Generator{Client: client, Tier: tier}
}

// Generate sends prompt to the model and returns the raw text. Failures are
// always *GenerationError or the caller's context error.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := g.Client.GenerateContent(ctx, prompt, g.Tier)
	if err != nil {
		return "", Classify(err)
	}
	if text == "" {
		return "", NewMalformedResponseError("empty response")
	}
	return text, nil
}
