package vuln

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/responses"
	"go.uber.org/zap"
)

const agentID = "vuln-agent"

// Raw response event carrying a piece of the assistant's answer
const outputTextDelta = "response.output_text.delta"

const defaultInstructions = `You are a security assistant that helps developers understand known vulnerabilities in their software dependencies.

Use the tools you have to look dependencies up in the National Vulnerability Database:
- nvd_search finds every vulnerability recorded for a dependency name and semantic version
- search_cpe resolves a dependency to the platform identifiers (CPE names) the database knows
- search_cve lists the vulnerabilities recorded for a single CPE name

Names and vendors must be alphanumeric and versions must look like 1.2.3. If a tool reports an error, explain it to the user instead of guessing.
When you report vulnerabilities, cite their CVE ids, summarize the English description and mention the weakness (CWE) when one is recorded.
If nothing is found, say so plainly.`

// VulnAgent answers dependency vulnerability questions with NVD backed tools
type VulnAgent struct {
	agent      *agents.Agent
	settings   *utils.Settings
	lookup     nvd.Lookup
	aggregator *nvd.Aggregator
	logger     *zap.Logger
}

// NewVulnAgent creates a new vulnerability agent
func NewVulnAgent(settings *utils.Settings, lookup nvd.Lookup, aggregator *nvd.Aggregator, logger *zap.Logger) *VulnAgent {
	if logger == nil {
		logger = zap.NewNop()
	}

	va := &VulnAgent{
		settings:   settings,
		lookup:     lookup,
		aggregator: aggregator,
		logger:     logger.Named("agent"),
	}

	// Load instructions from file, falling back to the built in prompt
	instructions, err := utils.LoadPromptWithFallback(settings.SysPromptPath, defaultInstructions)
	if err != nil {
		va.logger.Warn("using built in instructions", zap.String("path", settings.SysPromptPath), zap.Error(err))
	}

	// Create the underlying agent
	va.agent = agents.New(agentID).
		WithInstructions(instructions).
		WithModel(settings.Model)

	// Register tools
	va.registerTools()

	return va
}

// Agent returns the underlying openai-agents-go instance
func (va *VulnAgent) Agent() *agents.Agent {
	return va.agent
}

// ID returns the agent identifier
func (va *VulnAgent) ID() string {
	return agentID
}

// Stream runs the agent over the conversation so far plus the new prompt,
// forwarding answer text to onDelta as it is generated
func (va *VulnAgent) Stream(ctx context.Context, history []chat.Message, prompt string, onDelta func(delta string) error) (string, error) {
	runner := agents.Runner{}

	result, err := runner.RunInputsStreamed(ctx, va.agent, inputItems(history, prompt))
	if err != nil {
		return "", fmt.Errorf("agent execution failed: %w", err)
	}

	var text strings.Builder
	err = result.StreamEvents(func(event agents.StreamEvent) error {
		raw, ok := event.(agents.RawResponsesStreamEvent)
		if !ok || raw.Data.Type != outputTextDelta {
			return nil
		}

		delta := raw.Data.AsResponseOutputTextDelta().Delta
		if delta == "" {
			return nil
		}
		text.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return "", fmt.Errorf("agent stream failed: %w", err)
	}

	if final, ok := result.FinalOutput().(string); ok && final != "" {
		return final, nil
	}
	return text.String(), nil
}

// inputItems converts the stored conversation and the new prompt into model input
func inputItems(history []chat.Message, prompt string) []agents.TResponseInputItem {
	items := make([]agents.TResponseInputItem, 0, len(history)+1)
	for _, m := range history {
		role := responses.EasyInputMessageRoleUser
		if m.Role == chat.RoleModel {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	return append(items, responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser))
}

// credential returns the caller's NVD key, or the configured one when the
// request did not carry any
func (va *VulnAgent) credential(ctx context.Context) string {
	if credential := nvd.CredentialFrom(ctx); credential != "" {
		return credential
	}
	return va.settings.NVDAPIKey
}
