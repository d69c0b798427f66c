package salesaskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/salesask/salesask/internal/storage"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
	ObjectStore func(ctx context.Context) (storage.ObjectStore, error)
	Clock       func() time.Time
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

// Run executes one command and returns the process exit code: 0 on
// success, 2 for usage errors and 1 for anything else.
func Run(ctx context.Context, args []string, defaults Options) int {
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	root := NewRootCommand(defaults)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		var usage usageError
		if errors.As(err, &usage) {
			return 2
		}
		return 1
	}
	return 0
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRootCommand(defaults Options) *cobra.Command {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	if defaults.Clock == nil {
		defaults.Clock = time.Now
	}

	var (
		baseURL string
		apiKey  string
		timeout time.Duration
	)
	api := func() *client {
		httpClient := defaults.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: timeout}
		}
		return &client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: strings.TrimSpace(apiKey), http: httpClient}
	}

	root := &cobra.Command{
		Use:           "salesaskctl",
		Short:         "Operate and query a SalesAsk API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "SalesAsk API base URL")
	flags.StringVar(&apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 70*time.Second), "HTTP timeout (e.g. 10s)")

	root.AddCommand(
		newGetCommand("health", "GET /v1/health", "/v1/health", api, stdout),
		newGetCommand("ready", "GET /v1/ready", "/v1/ready", api, stdout),
		newAskCommand(api, stdout),
		newSalesCommand(api, stdout),
		newSeedCommand(stdout),
		newPublishCommand(defaults, stdout),
	)
	return root
}

func newGetCommand(use, short, path string, api func() *client, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := api().do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			printJSON(stdout, body)
			return nil
		},
	}
}

func newAskCommand(api func() *client, stdout io.Writer) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "POST /v1/ask and print the answer",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{errors.New("ask requires a question")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{"question": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			body, err := api().do(cmd.Context(), http.MethodPost, "/v1/ask", payload)
			if err != nil {
				return err
			}
			if raw {
				printJSON(stdout, body)
				return nil
			}
			var response struct {
				Data string `json:"data"`
			}
			if err := json.Unmarshal(body, &response); err != nil {
				return fmt.Errorf("decode ask response: %w", err)
			}
			_, _ = fmt.Fprintln(stdout, response.Data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON response")
	return cmd
}

func (c *client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, errorMessage(raw))
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Code    string `json:"error_code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		if payload.Code != "" {
			return payload.Code + ": " + payload.Message
		}
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

func printJSON(w io.Writer, raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(w, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(w, string(raw))
	}
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

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))}
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
