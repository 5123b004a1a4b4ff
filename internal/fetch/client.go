package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// NewClient returns an HTTP client with the policy's request timeout.
func NewClient(p Policy) *http.Client {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Do executes req and decodes the JSON response body into out. Non-2xx
// statuses become AuthError or StatusError so the retry policy can
// classify them.
func Do(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if IsAuthStatus(resp.StatusCode) {
		return &AuthError{Status: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Status: resp.StatusCode, Body: errorDetail(resp.Body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// errorDetail pulls a short message out of an error response body. APIs in
// this domain report either {"message": ...} or {"error": ...}; anything
// else is returned as trimmed raw text.
func errorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, s := range []string{payload.Message, payload.Msg, payload.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}
