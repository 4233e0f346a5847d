package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
)

// RefusalMessage is the fixed, non-technical reply for input the gate rejects.
const RefusalMessage = "I'm sorry, but my primary function is to support you with inquiries about Zededa Inc and its services. Can I help with a Zededa related question?"

// GuidelineKeys are the policy checks the classification model must answer.
// Changing the count or names changes the expected JSON shape and must be a
// coordinated change with the policy prompt below.
var GuidelineKeys = []string{
	"not-personally-identifiable",
	"professional-tone",
	"relevant-to-task-at-hand",
	"not-offensive-or-inappropriate",
	"related-to-zededa-zedcloud",
	"not-confidential",
	"zededa-zedcloud-specific-objects",
	"not-unrelated-to-zededa-zedcloud",
}

const policyPrompt = `CONTEXT: You are a supervisor tasked with validating user data against specific policies.
Your role is to ensure that the user data adheres to the provided policies between the <policies></policies> tags.

<policies>
1. The user data must not contain any personally identifiable information (PII).
2. Speaks with a professional tone.
3. The user data must be relevant to the task at hand.
4. The user data must not contain any offensive or inappropriate content.
5. The user data must only have information related to Zededa, Zedcloud or Edge Management.
6. The user data must not contain any confidential or sensitive information.
7. The user data must only have content related to Zededa, Zedcloud specific objects like application instances, devices, edge nodes, eve images, metrics etc.
8. The user data must not contain any information that is not related to Zededa, Zedcloud or Edge Management.
</policies>

INSTRUCTION: ONLY output a JSON object indicating whether the user data is compliant with each of the guidelines. Each of the keys in the JSON object corresponds to the guidelines mentioned above. The JSON object should follow the format of this example:
{
  "not-personally-identifiable": < true/false >,
  "professional-tone": < true/false >,
  "relevant-to-task-at-hand": < true/false >,
  "not-offensive-or-inappropriate": < true/false >,
  "related-to-zededa-zedcloud": < true/false >,
  "not-confidential": < true/false >,
  "zededa-zedcloud-specific-objects": < true/false >,
  "not-unrelated-to-zededa-zedcloud": < true/false >
}`

// Gate classifies user input against the policy set before a turn may start.
type Gate struct {
	model  backend.ModelClient
	logger *slog.Logger
}

// New creates a compliance gate backed by the given classification model.
func New(model backend.ModelClient, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		model:  model,
		logger: logger.With("component", "guard"),
	}
}

// Evaluate classifies one piece of raw user input. It returns (false, err)
// when the classification call itself failed; the caller must not proceed on
// an indeterminate result. A reply that does not conform to the expected JSON
// shape yields (false, nil): the gate fails closed.
func (g *Gate) Evaluate(ctx context.Context, text string) (bool, error) {
	reply, err := g.model.CreateReply(ctx, policyPrompt, []backend.Message{backend.UserText(text)}, nil)
	if err != nil {
		return false, fmt.Errorf("compliance classification failed: %w", err)
	}

	approved := conformsToGuidelines(reply.TextContent(), g.logger)
	g.logger.Info("compliance gate evaluated", "approved", approved)
	return approved, nil
}

// conformsToGuidelines checks that the classifier reply is a flat JSON object
// carrying a boolean for every guideline key, all true. Anything else rejects.
func conformsToGuidelines(raw string, logger *slog.Logger) bool {
	var verdict map[string]any
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		logger.Warn("failed to parse classifier reply as JSON", "error", err)
		return false
	}

	for _, key := range GuidelineKeys {
		v, ok := verdict[key]
		if !ok {
			logger.Warn("classifier reply missing guideline key", "key", key)
			return false
		}
		b, ok := v.(bool)
		if !ok {
			logger.Warn("classifier reply has non-boolean guideline value", "key", key)
			return false
		}
		if !b {
			return false
		}
	}

	// Any extra entries still participate in the verdict.
	for key, v := range verdict {
		b, ok := v.(bool)
		if !ok {
			logger.Warn("classifier reply has non-boolean value", "key", key)
			return false
		}
		if !b {
			return false
		}
	}

	return true
}
