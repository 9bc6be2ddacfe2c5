package vuln

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethanbaker/vulnassist/pkg/nvd"
)

// QuickSearchPrompt asks the model to look the dependency up with its own tools
func QuickSearchPrompt(name, version string) (string, error) {
	id, err := nvd.Validate(name, version, "")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Search for vulnerabilities in %s %s", id.Name, id.Version), nil
}

// PrefetchSearchPrompt runs the lookup up front and hands the model the
// vulnerabilities it found, so the answer needs no tool calls
func (va *VulnAgent) PrefetchSearchPrompt(ctx context.Context, name, version string) (string, error) {
	result, err := va.aggregator.Aggregate(ctx, name, version, "", va.credential(ctx))
	if err != nil {
		return "", err
	}

	cves, err := json.MarshalIndent(result.Vulnerabilities, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal vulnerabilities: %w", err)
	}

	return fmt.Sprintf("The following <cves> were found for %s %s: <cves>\n%s\n</cves>",
		result.Identifier.Name, result.Identifier.Version, cves), nil
}

// BuildPrompt renders a dependency check prompt, prefetching the results
// when asked to
func (va *VulnAgent) BuildPrompt(ctx context.Context, name, version string, prefetch bool) (string, error) {
	if prefetch {
		return va.PrefetchSearchPrompt(ctx, name, version)
	}
	return QuickSearchPrompt(name, version)
}
