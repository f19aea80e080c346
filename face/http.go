package face

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider is a Provider backed by a local detector sidecar speaking
// JSON over HTTP: POST /detect with a frame, detections back.
type HTTPProvider struct {
	url    string
	client *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a provider calling the sidecar at baseURL. A nil
// client gets a default with a conservative timeout.
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{url: baseURL + "/detect", client: client}
}

type detectRequest struct {
	Frame Frame `json:"frame"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect sends the frame to the sidecar and decodes its detections.
func (p *HTTPProvider) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	body, err := json.Marshal(detectRequest{Frame: frame})
	if err != nil {
		return nil, fmt.Errorf("encoding detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling detector: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %s", resp.Status)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding detect response: %w", err)
	}
	return out.Detections, nil
}
