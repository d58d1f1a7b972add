package pipeline

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"veriprompt/internal/generate"
	"veriprompt/internal/publish"
	"veriprompt/internal/traits"
)

// ErrEmptyPrompt is the one client-input failure: nothing to generate from.
var ErrEmptyPrompt = errors.New("pipeline: no prompt provided")

// promptPrefix is prepended to every user prompt before generation.
const promptPrefix = "High quality, photographic. "

// Publisher is the dual-store side of the pipeline.
type Publisher interface {
	Publish(ctx context.Context, data []byte, name, contentType string) (*publish.Result, error)
	Retract(ctx context.Context, name string)
}

// Result is the terminal response contract of one pipeline run. It is
// built once and never mutated; the hash binds the exact metadata bytes
// that were published, which is what a downstream mint transaction signs.
type Result struct {
	MetadataHash           string         `json:"metadataHash"`
	IPFSImageCID           string         `json:"ipfsImageCid"`
	IPFSImageGatewayURL    string         `json:"ipfsImageGatewayUrl"`
	IPFSMetadataCID        string         `json:"ipfsMetadataCid"`
	IPFSMetadataGatewayURL string         `json:"ipfsMetadataGatewayUrl"`
	OriginalPrompt         string         `json:"original_prompt"`
	Attributes             []traits.Trait `json:"attributes"`
	ImageURL               string         `json:"imageUrl,omitempty"`
	MetadataURL            string         `json:"metadataUrl,omitempty"`
}

// metadata is the fixed-shape document pinned alongside the image.
type metadata struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Image          string         `json:"image"`
	ImageGateway   string         `json:"image_gateway"`
	OriginalPrompt string         `json:"original_prompt"`
	Attributes     []traits.Trait `json:"attributes"`
}

// Pipeline runs one generate→extract→publish→hash sequence per request.
// All entities are owned by the run; nothing is shared across requests.
type Pipeline struct {
	invoker        generate.Invoker
	labeler        traits.Labeler
	publisher      Publisher
	deleteAfterPin bool
	log            *zap.Logger
	now            func() time.Time
}

func New(invoker generate.Invoker, labeler traits.Labeler, publisher Publisher, deleteAfterPin bool, log *zap.Logger) *Pipeline {
	return &Pipeline{
		invoker:        invoker,
		labeler:        labeler,
		publisher:      publisher,
		deleteAfterPin: deleteAfterPin,
		log:            log,
		now:            time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, prompt string) (*Result, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	resp, err := p.invoker.Invoke(ctx, generate.Request{Prompt: promptPrefix + prompt})
	if err != nil {
		return nil, err
	}
	image, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generate.ErrNoImage, err)
	}

	attrs := traits.Merge(prompt, traits.FromFields(resp.Fields), p.visionTraits(ctx, image))

	fingerprint := promptFingerprint(prompt)
	epochMillis := p.now().UnixMilli()

	imageName := fmt.Sprintf("prompt-%s-%d.png", fingerprint, epochMillis)
	imagePub, err := p.publisher.Publish(ctx, image, imageName, "image/png")
	if err != nil {
		return nil, err
	}

	doc := metadata{
		Name:           "VeriPrompt AI Art",
		Description:    "An AI-generated artwork from VeriPrompt.",
		Image:          "ipfs://" + imagePub.CID,
		ImageGateway:   imagePub.GatewayURL,
		OriginalPrompt: prompt,
		Attributes:     attrs,
	}
	metadataBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	metadataName := fmt.Sprintf("metadata-%s-%d.json", fingerprint, epochMillis)
	metadataPub, err := p.publisher.Publish(ctx, metadataBytes, metadataName, "application/json")
	if err != nil {
		return nil, err
	}

	// The digest must cover the exact byte sequence that was uploaded,
	// not a re-serialization of the document.
	digest := sha256.Sum256(metadataBytes)

	if p.deleteAfterPin {
		p.retractAll(ctx, imageName, metadataName)
	}

	result := &Result{
		MetadataHash:           hex.EncodeToString(digest[:]),
		IPFSImageCID:           imagePub.CID,
		IPFSImageGatewayURL:    imagePub.GatewayURL,
		IPFSMetadataCID:        metadataPub.CID,
		IPFSMetadataGatewayURL: metadataPub.GatewayURL,
		OriginalPrompt:         prompt,
		Attributes:             attrs,
	}
	if !p.deleteAfterPin {
		result.ImageURL = imagePub.ObjectURL
		result.MetadataURL = metadataPub.ObjectURL
	}
	return result, nil
}

// visionTraits runs the label sub-extraction. It fails open: a labeler
// failure degrades the trait set, never the run.
func (p *Pipeline) visionTraits(ctx context.Context, image []byte) []traits.Trait {
	labels, err := p.labeler.Labels(ctx, image)
	if err != nil {
		p.log.Warn("vision extraction degraded", zap.Error(err))
		return nil
	}
	return traits.FromLabels(labels)
}

// retractAll deletes both object-store copies concurrently. Outcomes are
// independent and absorbed; the pinned copies are already durable.
func (p *Pipeline) retractAll(ctx context.Context, names ...string) {
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			p.publisher.Retract(ctx, name)
		}(name)
	}
	wg.Wait()
}

func promptFingerprint(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])[:8]
}
