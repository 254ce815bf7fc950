package plan

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultVisionTimeout is the default round-trip limit for one document.
	DefaultVisionTimeout = 120 * time.Second

	// maxResponseBytes limits the response body to 10 MB.
	maxResponseBytes = 10 << 20
)

// VisionOption configures a VisionClient.
type VisionOption func(*visionConfig)

type visionConfig struct {
	timeout time.Duration
	client  *http.Client
	apiKey  string
}

func defaultVisionConfig() visionConfig {
	return visionConfig{timeout: DefaultVisionTimeout}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) VisionOption {
	return func(c *visionConfig) {
		c.timeout = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) VisionOption {
	return func(c *visionConfig) {
		c.client = client
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) VisionOption {
	return func(c *visionConfig) {
		c.apiKey = key
	}
}

// VisionRequest is the body posted to the vision service.
type VisionRequest struct {
	Document       string   `json:"document"` // base64
	MimeType       string   `json:"mimeType"`
	KnownArea      float64  `json:"knownArea,omitempty"`
	DimensionHints []string `json:"dimensionHints,omitempty"`
	VectorScale    float64  `json:"vectorScale,omitempty"`
}

// VisionClient requests a semantic candidate plan from the AI vision
// service. It makes exactly one attempt per document; retry policy
// belongs to the caller.
type VisionClient struct {
	url    string
	cfg    visionConfig
	client *http.Client
}

// NewVisionClient returns a client posting to url.
func NewVisionClient(url string, opts ...VisionOption) *VisionClient {
	cfg := defaultVisionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}
	return &VisionClient{url: url, cfg: cfg, client: client}
}

// Recognize posts the document and decodes the returned plan. The result
// is untrusted and has already passed ValidateCandidate.
func (c *VisionClient) Recognize(ctx context.Context, doc []byte, mimeType string, knownArea float64, hints *VectorHints) (*FloorPlan, error) {
	if c.url == "" {
		return nil, fmt.Errorf("vision: service URL is empty")
	}

	reqBody := VisionRequest{
		Document:  base64.StdEncoding.EncodeToString(doc),
		MimeType:  mimeType,
		KnownArea: knownArea,
	}
	if hints != nil {
		reqBody.DimensionHints = hints.DimensionHints()
		reqBody.VectorScale = hints.Scale
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("vision: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("vision: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: HTTP POST %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: HTTP POST %s: status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("vision: reading response: %w", err)
	}

	p, err := ParsePlanJSON(body)
	if err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}
	return p, nil
}
