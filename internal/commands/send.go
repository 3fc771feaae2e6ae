package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/authclient/httpclient"
)

// SendOptions holds options for the send command
type SendOptions struct {
	Method    string
	Data      string
	Queries   []string
	Headers   []string
	APIKey    string
	NoRefresh bool
	File      string
	Timeout   time.Duration
	Retries   int
	Include   bool
}

// NewSendCommand creates the send command
func NewSendCommand(root *RootOptions) *cobra.Command {
	opts := &SendOptions{}

	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Send an authenticated request",
		Long: `Sends one request through the token pipeline and prints the decoded body.

JSON responses are pretty printed, binary responses are written as is and
anything else is printed as text. A request can also be described in a YAML
file whose keys are request options (method, url, headers, qs, body, json,
timeout, retries, apiKey, refreshToken, followRedirect, gzip).`,
		Example: `  # GET relative to client.base_url
  authclient send /devices

  # POST JSON with a header and query parameter
  authclient send /devices -X POST -d '{"name":"probe"}' -H 'X-Tenant: acme' -q verbose=1

  # Replay a request file, overriding its method
  authclient send -f request.yaml -X PUT`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDescriptor(cmd, opts, args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.client.Send(cmd.Context(), d)
			if err != nil {
				return explain(err)
			}
			if opts.Include {
				printHead(cmd.OutOrStdout(), resp.StatusCode, resp.Headers)
			}
			return printBody(cmd.OutOrStdout(), resp.Body)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Method, "method", "X", "GET", "HTTP method")
	flags.StringVarP(&opts.Data, "data", "d", "", "Request body; JSON is sent as JSON, @path reads a file")
	flags.StringArrayVarP(&opts.Queries, "query", "q", nil, "Query parameter as key=value (repeatable)")
	flags.StringArrayVarP(&opts.Headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	flags.StringVar(&opts.APIKey, "api-key", "", "API key appended as the apikey query parameter")
	flags.BoolVar(&opts.NoRefresh, "no-refresh", false, "Skip the token freshness check")
	flags.StringVarP(&opts.File, "file", "f", "", "YAML request file")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Per-attempt timeout (default from config)")
	flags.IntVar(&opts.Retries, "retries", 0, "Re-invocations after transport failures (default from config)")
	flags.BoolVarP(&opts.Include, "include", "i", false, "Print the status line and response headers")

	return cmd
}

// buildDescriptor merges the request file, the positional URL and the flags.
// Flags win over the file.
func buildDescriptor(cmd *cobra.Command, opts *SendOptions, args []string) (*httpclient.Descriptor, error) {
	bag := map[string]any{}
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		if err := yaml.Unmarshal(data, &bag); err != nil {
			return nil, fmt.Errorf("parse request file %s: %w", opts.File, err)
		}
		if bag == nil {
			bag = map[string]any{}
		}
	}
	if len(args) > 0 {
		bag["url"] = args[0]
	}

	d, err := httpclient.DecodeDescriptor(bag)
	if err != nil {
		return nil, err
	}
	if d.URL == "" {
		return nil, errors.New("a URL is required, as an argument or in the request file")
	}

	flags := cmd.Flags()
	if flags.Changed("method") || d.Method == "" {
		d.Method = strings.ToUpper(opts.Method)
	}
	if err := applyData(d, opts.Data); err != nil {
		return nil, err
	}
	if err := applyQueries(d, opts.Queries); err != nil {
		return nil, err
	}
	if err := applyHeaders(d, opts.Headers); err != nil {
		return nil, err
	}
	if opts.APIKey != "" {
		d.APIKey = opts.APIKey
	}
	if opts.NoRefresh {
		d.RefreshToken = httpclient.Bool(false)
	}
	if flags.Changed("timeout") {
		d.Timeout = opts.Timeout
	}
	if flags.Changed("retries") {
		d.Retries = httpclient.Int(opts.Retries)
	}
	return d, nil
}

func applyData(d *httpclient.Descriptor, data string) error {
	if data == "" {
		return nil
	}
	if path, ok := strings.CutPrefix(data, "@"); ok {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read body file: %w", err)
		}
		data = string(content)
	}
	if json.Valid([]byte(data)) {
		d.Body = json.RawMessage(data)
		d.JSON = httpclient.Bool(true)
		return nil
	}
	d.Body = data
	d.JSON = httpclient.Bool(false)
	return nil
}

func applyQueries(d *httpclient.Descriptor, queries []string) error {
	for _, q := range queries {
		key, value, ok := strings.Cut(q, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid query %q: expected key=value", q)
		}
		if d.QueryParams == nil {
			d.QueryParams = make(map[string][]string)
		}
		d.QueryParams.Add(key, value)
	}
	return nil
}

func applyHeaders(d *httpclient.Descriptor, headers []string) error {
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid header %q: expected 'Name: value'", h)
		}
		if d.Headers == nil {
			d.Headers = make(map[string]string)
		}
		d.Headers[name] = strings.TrimSpace(value)
	}
	return nil
}
