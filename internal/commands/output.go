package commands

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"slices"
)

// printBody writes a decoded response body: raw bytes as is, strings as text,
// decoded JSON indented.
func printBody(w io.Writer, body any) error {
	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		_, err := w.Write(b)
		return err
	case string:
		if b == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, b)
		return err
	default:
		encoded, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("format response: %w", err)
		}
		_, err = fmt.Fprintln(w, string(encoded))
		return err
	}
}

// printHead writes the status line and headers in a stable order
func printHead(w io.Writer, status int, headers nethttp.Header) {
	fmt.Fprintf(w, "HTTP %d %s\n", status, nethttp.StatusText(status))
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, value := range headers[name] {
			fmt.Fprintf(w, "%s: %s\n", name, value)
		}
	}
	fmt.Fprintln(w)
}
