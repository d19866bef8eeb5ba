package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 64 << 10

// postJSON sends payload as JSON and decodes a 2xx body into out. On 4xx/5xx
// the provider's own error message is extracted when possible.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any, errMessage func([]byte) string) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if msg := errMessage(raw); msg != "" {
			return resp.StatusCode, fmt.Errorf("api error: %s", msg)
		}
		return resp.StatusCode, fmt.Errorf("api error: %s", resp.Status)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}

func decodeLoose(raw []byte, out any) bool {
	return len(raw) > 0 && json.Unmarshal(raw, out) == nil
}
