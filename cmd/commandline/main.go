package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/ethanbaker/vulnassist/pkg/sdk"
	"github.com/ethanbaker/vulnassist/pkg/utils"
)

const usage = `Commands:
  /check <name> <version> [prefetch]   ask about a dependency
  /search <name> <version> [vendor]    list its vulnerabilities without the model
  /history                             print the stored conversation
  exit                                 quit
Anything else is sent to the assistant as a chat message.`

func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	client := sdk.NewClient(
		cfg.GetWithDefault("API_URL", "http://localhost:8080"),
		cfg.Get("API_KEY"),
		cfg.Get("NVD_API_KEY"),
	)

	// Start interactive session
	ctx := context.Background()
	if err := startInteractiveSession(ctx, client); err != nil {
		log.Fatalf("[COMMANDLINE]: Failed to run interactive session: %v", err)
	}
}

// startInteractiveSession runs the read-eval-print loop against the API
func startInteractiveSession(ctx context.Context, client *sdk.Client) error {
	status, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("assistant API is not reachable: %w", err)
	}

	fmt.Printf("Vulnerability assistant connected (%d stored turns). Type 'help' for commands, 'exit' to quit.\n", status.Batches)

	// Create scanner for reading user input
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "exit" {
			break
		}

		if input == "" {
			continue
		}

		if err := handleInput(ctx, client, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

// handleInput dispatches one line of user input
func handleInput(ctx context.Context, client *sdk.Client, input string) error {
	fields := strings.Fields(input)

	switch fields[0] {
	case "help":
		fmt.Println(usage)
		return nil

	case "/history":
		events, err := client.History(ctx)
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("[%s] %s: %s\n", e.Timestamp, e.Role, e.Content)
		}
		return nil

	case "/search":
		if len(fields) < 3 {
			return fmt.Errorf("usage: /search <name> <version> [vendor]")
		}
		vendor := ""
		if len(fields) > 3 {
			vendor = fields[3]
		}
		result, err := client.Search(ctx, fields[1], fields[2], vendor)
		if err != nil {
			return err
		}
		printResult(result)
		return nil

	case "/check":
		if len(fields) < 3 {
			return fmt.Errorf("usage: /check <name> <version> [prefetch]")
		}
		check := sdk.DependencyCheck{
			Name:     fields[1],
			Version:  fields[2],
			Prefetch: len(fields) > 3 && fields[3] == "prefetch",
		}
		printer := &streamPrinter{}
		err := client.CheckDependency(ctx, check, printer.print)
		printer.finish()
		return err
	}

	printer := &streamPrinter{}
	err := client.SendMessage(ctx, input, printer.print)
	printer.finish()
	return err
}

// streamPrinter prints model events incrementally. Each model event holds
// the whole answer so far, so only the unseen suffix is written.
type streamPrinter struct {
	printed string
	started bool
}

func (p *streamPrinter) print(e chat.Event) error {
	if e.Role != chat.RoleModel {
		return nil
	}

	if !p.started {
		fmt.Print("Assistant: ")
		p.started = true
	}

	if strings.HasPrefix(e.Content, p.printed) {
		fmt.Print(e.Content[len(p.printed):])
	} else {
		fmt.Print("\n" + e.Content)
	}
	p.printed = e.Content
	return nil
}

func (p *streamPrinter) finish() {
	if p.started {
		fmt.Println()
	}
}

// printResult renders a lookup result as a short report
func printResult(result *nvd.Result) {
	fmt.Printf("%s %s (vendor %s): %d platforms, %d vulnerabilities\n",
		result.Identifier.Name, result.Identifier.Version, result.Identifier.Vendor,
		len(result.Platforms), len(result.Vulnerabilities))

	for _, cve := range result.Vulnerabilities {
		summary := ""
		for _, d := range cve.Descriptions {
			if d.Lang == "en" {
				summary = d.Value
				break
			}
		}
		if len(summary) > 120 {
			summary = summary[:117] + "..."
		}
		fmt.Printf("  %-16s %s\n", cve.ID, summary)
	}
}
