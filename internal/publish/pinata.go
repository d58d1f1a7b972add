package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Pin is one durably pinned payload.
type Pin struct {
	CID        string
	GatewayURL string
}

// Pinner uploads bytes to a content-addressed pinning service.
type Pinner interface {
	Configured() bool
	Pin(ctx context.Context, data []byte, name, contentType string) (*Pin, error)
}

type PinataConfig struct {
	JWT      string
	Endpoint string
	Gateway  string
}

// PinataClient pins files through Pinata's multipart upload endpoint.
type PinataClient struct {
	jwt      string
	endpoint string
	gateway  string
	httpc    *http.Client
}

func NewPinataClient(cfg PinataConfig) *PinataClient {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = "https://api.pinata.cloud"
	}
	gateway := strings.TrimSpace(cfg.Gateway)
	if gateway == "" {
		gateway = "gateway.pinata.cloud"
	}
	return &PinataClient{
		jwt:      strings.TrimSpace(cfg.JWT),
		endpoint: endpoint,
		gateway:  gateway,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *PinataClient) Configured() bool { return p.jwt != "" }

func (p *PinataClient) Pin(ctx context.Context, data []byte, name, contentType string) (*Pin, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	if err := form.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pin upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pin response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &PublishError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode pin response: %w", err)
	}
	if decoded.IpfsHash == "" {
		return nil, fmt.Errorf("pin response missing IpfsHash")
	}

	return &Pin{
		CID:        decoded.IpfsHash,
		GatewayURL: fmt.Sprintf("https://%s/ipfs/%s", p.gateway, decoded.IpfsHash),
	}, nil
}
