package shopqactl

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

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// usageError marks failures that exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

// answerPayload mirrors the /v1/ask response body.
type answerPayload struct {
	Query      string   `json:"query"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Answer     string   `json:"answer"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
	TotalRows  int64    `json:"total_rows"`
	Question   string   `json:"question"`
}

// Run executes one shopqactl invocation and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(defaults, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var usage usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		_, _ = fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	_, _ = fmt.Fprintln(stderr, err)
	return 1
}

type client struct {
	baseURL string
	http    *http.Client
}

func newRootCommand(defaults Options, stdout io.Writer) *cobra.Command {
	var baseURL string
	var timeout time.Duration

	newClient := func() *client {
		httpClient := defaults.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: timeout}
		}
		return &client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
	}

	root := &cobra.Command{
		Use:           "shopqactl",
		Short:         "Ask questions about the shop from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.PersistentFlags().StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "shopqa API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 30s)")

	var page int
	var rawJSON bool
	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "POST /v1/ask and render the answer, SQL and result table",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{errors.New("ask requires a question")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]any{"question": strings.Join(args, " "), "page": page})
			if err != nil {
				return err
			}
			raw, err := newClient().do(cmd.Context(), http.MethodPost, "/v1/ask", body)
			if err != nil {
				return err
			}
			if rawJSON {
				return printJSON(stdout, raw)
			}
			var payload answerPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("decode answer: %w", err)
			}
			return renderAnswer(stdout, payload)
		},
	}
	ask.Flags().IntVar(&page, "page", 1, "result page to fetch")
	ask.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON payload")

	simple := func(use, short, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) > 0 {
					return usageError{fmt.Errorf("%s takes no arguments", use)}
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, _ []string) error {
				raw, err := newClient().do(cmd.Context(), http.MethodGet, path, nil)
				if err != nil {
					return err
				}
				return printJSON(stdout, raw)
			},
		}
	}

	root.AddCommand(
		ask,
		simple("health", "GET /v1/health", "/v1/health"),
		simple("ready", "GET /v1/ready", "/v1/ready"),
		simple("schema", "GET /v1/schema", "/v1/schema"),
	)
	return root
}

func (c *client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func renderAnswer(w io.Writer, payload answerPayload) error {
	_, _ = fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Answer").WithPadding(1).Sprint(payload.Answer))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "SQL:", payload.Query)
	_, _ = fmt.Fprintln(w)

	if len(payload.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "No rows.")
	} else {
		data := pterm.TableData{payload.Columns}
		for _, row := range payload.Rows {
			cells := make([]string, len(row))
			for i, value := range row {
				cells[i] = cellString(value)
			}
			data = append(data, cells)
		}
		if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).WithWriter(w).Render(); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	_, _ = fmt.Fprintf(w, "\npage %d of %d (%d rows)\n", payload.Page, payload.TotalPages, payload.TotalRows)
	return nil
}

// cellString renders JSON-decoded values; whole numbers print without a fraction.
func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func printJSON(w io.Writer, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		_, _ = fmt.Fprintln(w, string(raw))
		return nil
	}
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(formatted))
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
