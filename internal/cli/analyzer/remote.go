package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type remoteFlags struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// newRemoteCommand talks to a running analyzer-api instead of opening the
// pipeline locally.
func (c *cli) newRemoteCommand() *cobra.Command {
	flags := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Call a running analyzer API server",
	}
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", envOr(c.opts.LookupEnv, "ANALYZER_API_URL", "http://localhost:8080"), "analyzer API base URL")
	cmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", envOr(c.opts.LookupEnv, "ANALYZER_API_KEY", ""), "API key for authenticated requests")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "HTTP timeout")

	for _, endpoint := range []struct {
		use, short, path string
	}{
		{use: "health", short: "GET /v1/health", path: "/v1/health"},
		{use: "ready", short: "GET /v1/ready", path: "/v1/ready"},
		{use: "suggestions", short: "GET /v1/suggestions", path: "/v1/suggestions"},
	} {
		path := endpoint.path
		cmd.AddCommand(&cobra.Command{
			Use:   endpoint.use,
			Short: endpoint.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.remoteCall(cmd, flags, http.MethodGet, path, nil)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ask <question>",
		Short: "Create a session on the server and ask one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.remoteAsk(cmd, flags, strings.Join(args, " "))
		},
	})
	return cmd
}

func (c *cli) remoteCall(cmd *cobra.Command, flags *remoteFlags, method, path string, body any) error {
	code, responseBody, err := doRequest(cmd.Context(), c.client(flags), method, endpointURL(flags.baseURL, path), flags.apiKey, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(responseBody)))
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(responseBody))
	}
	return nil
}

func (c *cli) remoteAsk(cmd *cobra.Command, flags *remoteFlags, question string) error {
	client := c.client(flags)
	code, raw, err := doRequest(cmd.Context(), client, http.MethodPost, endpointURL(flags.baseURL, "/v1/sessions"), flags.apiKey, map[string]any{"greeting": false})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(raw)))
	}
	var session struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(raw, &session); err != nil || session.SessionID == "" {
		return fmt.Errorf("unexpected session response: %s", strings.TrimSpace(string(raw)))
	}

	code, raw, err = doRequest(cmd.Context(), client, http.MethodPost, endpointURL(flags.baseURL, "/v1/sessions/"+session.SessionID+"/turns"), flags.apiKey, map[string]any{"text": question})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(raw)))
	}
	var turn struct {
		Reply struct {
			Text string `json:"text"`
		} `json:"reply"`
	}
	if err := json.Unmarshal(raw, &turn); err != nil {
		return fmt.Errorf("unexpected turn response: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), turn.Reply.Text)
	return nil
}

func (c *cli) client(flags *remoteFlags) *http.Client {
	if c.opts.HTTPClient != nil {
		return c.opts.HTTPClient
	}
	return &http.Client{Timeout: flags.timeout}
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func endpointURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func envOr(lookup func(string) (string, bool), key, fallback string) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
