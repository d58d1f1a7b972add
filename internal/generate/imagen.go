package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const imageKey = "bytesBase64Encoded"

// ImagenClient calls an Imagen-family model through the predict REST
// surface. The response predictions are decoded field by field so that
// side-channel keys survive with their order intact.
type ImagenClient struct {
	endpoint string
	model    string
	apiKey   string
	httpc    *http.Client
}

type ImagenConfig struct {
	Endpoint string
	Model    string
	APIKey   string
}

func NewImagenClient(cfg ImagenConfig) (*ImagenClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("imagen endpoint is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("imagen model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("imagen api key is required")
	}
	return &ImagenClient{
		endpoint: endpoint,
		model:    model,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		httpc:    &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount       int    `json:"sampleCount"`
	AspectRatio       string `json:"aspectRatio"`
	SafetyFilterLevel string `json:"safetyFilterLevel"`
	PersonGeneration  string `json:"personGeneration"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
}

type predictError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *ImagenClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			SampleCount:       1,
			AspectRatio:       "1:1",
			SafetyFilterLevel: "block_some",
			PersonGeneration:  "allow_adult",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict", c.endpoint, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predict response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var pe predictError
		if json.Unmarshal(raw, &pe) == nil && pe.Error.Message != "" {
			apiErr.Status = pe.Error.Status
			apiErr.Message = pe.Error.Message
			if pe.Error.Code != 0 {
				apiErr.Code = pe.Error.Code
			}
		}
		return nil, Classify(apiErr)
	}

	var decoded predictResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if len(decoded.Predictions) == 0 {
		return nil, fmt.Errorf("%w: empty predictions", ErrNoImage)
	}

	fields, err := decodeOrderedFields(decoded.Predictions[0])
	if err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	out := &Response{Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		if f.Key == imageKey {
			if s, ok := f.Value.(string); ok {
				out.ImageBase64 = s
			}
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	if out.ImageBase64 == "" {
		return nil, ErrNoImage
	}
	return out, nil
}

// decodeOrderedFields walks one JSON object token by token so that key
// order is preserved; map decoding would lose it.
func decodeOrderedFields(raw json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("prediction is not an object")
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Value: normalize(value)})
	}
	return fields, nil
}

// normalize converts json.Number values to float64 so downstream filters
// see one numeric representation.
func normalize(v any) any {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}
