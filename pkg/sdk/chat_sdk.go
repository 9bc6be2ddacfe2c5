package sdk

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethanbaker/vulnassist/pkg/chat"
)

// Largest single event line accepted from a chat stream
const maxEventSize = 16 * 1024 * 1024

// History returns the stored conversation
func (c *Client) History(ctx context.Context) ([]chat.Event, error) {
	var events []chat.Event
	err := c.stream(ctx, http.MethodGet, "/api/chat/", nil, func(e chat.Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// SendMessage runs one chat turn, calling onEvent for every event streamed
// back: the user's own message first, then the model's answer as it grows
func (c *Client) SendMessage(ctx context.Context, prompt string, onEvent func(chat.Event) error) error {
	form := url.Values{"prompt": {prompt}}
	return c.stream(ctx, http.MethodPost, "/api/chat/", form, onEvent)
}

// CheckDependency runs a chat turn whose prompt the backend renders for a
// dependency name and version
func (c *Client) CheckDependency(ctx context.Context, check DependencyCheck, onEvent func(chat.Event) error) error {
	form := url.Values{
		"dependency_name":    {check.Name},
		"dependency_version": {check.Version},
		"prefetch":           {strconv.FormatBool(check.Prefetch)},
	}
	return c.stream(ctx, http.MethodPost, "/api/chat/", form, onEvent)
}

// stream performs a request answered with newline delimited chat events
func (c *Client) stream(ctx context.Context, method, path string, form url.Values, onEvent func(chat.Event) error) error {
	req, err := c.newRequest(ctx, method, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(method, path, resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e chat.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("failed to decode chat event: %w", err)
		}
		if err := onEvent(e); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read chat stream: %w", err)
	}
	return nil
}
