// tools.go handles registering tools for the VulnAgent
package vuln

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"
	"go.uber.org/zap"
)

// registerTools registers the NVD lookup tools
func (va *VulnAgent) registerTools() {
	identifierProperties := func(nameKey, nameDescription string) map[string]any {
		return map[string]any{
			nameKey: map[string]any{
				"type":        "string",
				"description": nameDescription,
			},
			"version": map[string]any{
				"type":        "string",
				"description": "Semantic version of the dependency, for example 2.14.1",
			},
			"vendor": map[string]any{
				"type":        "string",
				"description": "Vendor of the dependency, or an empty string when unknown",
			},
		}
	}

	// CPE resolution tool
	searchCPETool := agents.FunctionTool{
		Name:        "search_cpe",
		Description: "Resolve a dependency name and version to the CPE platform entries known to the National Vulnerability Database",
		ParamsJSONSchema: map[string]any{
			"type":                 "object",
			"properties":           identifierProperties("product", "Name of the dependency, letters and digits only"),
			"additionalProperties": false,
			"required":             []string{"product", "version", "vendor"},
		},
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			return va.handleSearchCPE(ctx, arguments)
		},
		IsEnabled: agents.FunctionToolEnabled(),
	}

	// CVE listing tool
	searchCVETool := agents.FunctionTool{
		Name:        "search_cve",
		Description: "List the vulnerabilities (CVEs) recorded for a single CPE name",
		ParamsJSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cpe_name": map[string]any{
					"type":        "string",
					"description": "Full CPE 2.3 name as returned by search_cpe, for example cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*",
				},
			},
			"additionalProperties": false,
			"required":             []string{"cpe_name"},
		},
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			return va.handleSearchCVE(ctx, arguments)
		},
		IsEnabled: agents.FunctionToolEnabled(),
	}

	// Combined lookup tool
	nvdSearchTool := agents.FunctionTool{
		Name:        "nvd_search",
		Description: "Find every vulnerability recorded for a dependency: resolves its CPE entries and lists the CVEs of each one",
		ParamsJSONSchema: map[string]any{
			"type":                 "object",
			"properties":           identifierProperties("name", "Name of the dependency, letters and digits only"),
			"additionalProperties": false,
			"required":             []string{"name", "version", "vendor"},
		},
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			return va.handleNVDSearch(ctx, arguments)
		},
		IsEnabled: agents.FunctionToolEnabled(),
	}

	// Register all tools with the agent
	va.agent.Tools = []agents.Tool{
		searchCPETool,
		searchCVETool,
		nvdSearchTool,
	}
}

// handleSearchCPE resolves a dependency to CPE entries
func (va *VulnAgent) handleSearchCPE(ctx context.Context, arguments string) (map[string]any, error) {
	// Unmarshal parameters
	var params struct {
		Product string `json:"product"`
		Version string `json:"version"`
		Vendor  string `json:"vendor"`
	}
	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	// Validate parameters
	id, err := nvd.Validate(params.Product, params.Version, params.Vendor)
	if err != nil {
		return toolError(err), nil
	}

	cpes, err := va.lookup.ResolveIdentifier(ctx, id, va.credential(ctx))
	if err != nil {
		va.logger.Warn("search_cpe failed", zap.String("match", id.MatchString()), zap.Error(err))
		return toolError(err), nil
	}

	return map[string]any{
		"cpes": cpes,
	}, nil
}

// handleSearchCVE lists the vulnerabilities recorded for one CPE name
func (va *VulnAgent) handleSearchCVE(ctx context.Context, arguments string) (map[string]any, error) {
	// Unmarshal parameters
	var params struct {
		CPEName string `json:"cpe_name"`
	}
	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	// Validate parameters
	if err := nvd.ValidateCPEName(params.CPEName); err != nil {
		return toolError(err), nil
	}

	cves, err := va.lookup.FetchDetails(ctx, params.CPEName, va.credential(ctx))
	if err != nil {
		va.logger.Warn("search_cve failed", zap.String("cpe_name", params.CPEName), zap.Error(err))
		return toolError(err), nil
	}

	return map[string]any{
		"cves": cves,
	}, nil
}

// handleNVDSearch runs the full two stage lookup
func (va *VulnAgent) handleNVDSearch(ctx context.Context, arguments string) (map[string]any, error) {
	// Unmarshal parameters
	var params struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Vendor  string `json:"vendor"`
	}
	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := va.aggregator.Aggregate(ctx, params.Name, params.Version, params.Vendor, va.credential(ctx))
	if err != nil {
		var verr *nvd.ValidationError
		if !errors.As(err, &verr) {
			va.logger.Warn("nvd_search failed", zap.String("name", params.Name), zap.Error(err))
		}
		return toolError(err), nil
	}

	return map[string]any{
		"cpes": len(result.Platforms),
		"cves": result.Vulnerabilities,
	}, nil
}

// toolError reports a failure back to the model as a tool result
func toolError(err error) map[string]any {
	return map[string]any{
		"error": err.Error(),
	}
}
