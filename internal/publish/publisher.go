package publish

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Result is the outcome of one dual publish. ObjectURL is empty once the
// object-store copy has been retracted.
type Result struct {
	ObjectURL  string
	CID        string
	GatewayURL string
}

// DualPublisher writes a payload to the object store and then pins it.
// The pinned copy is the durable one; the object copy is transient and
// may be retracted later. A failed pin does not roll back the object
// write — retraction is best-effort and idempotent, so an orphaned
// object is acceptable.
type DualPublisher struct {
	store  ObjectStore
	pinner Pinner
	log    *zap.Logger
}

func NewDualPublisher(store ObjectStore, pinner Pinner, log *zap.Logger) *DualPublisher {
	return &DualPublisher{store: store, pinner: pinner, log: log}
}

func (p *DualPublisher) Publish(ctx context.Context, data []byte, name, contentType string) (*Result, error) {
	if !p.pinner.Configured() {
		return nil, ErrNotConfigured
	}

	objectURL, err := p.store.Put(ctx, name, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("object store put %s: %w", name, err)
	}
	p.log.Info("object stored", zap.String("object", name), zap.Int("bytes", len(data)))

	pin, err := p.pinner.Pin(ctx, data, name, contentType)
	if err != nil {
		return nil, err
	}
	p.log.Info("pinned", zap.String("object", name), zap.String("cid", pin.CID))

	return &Result{
		ObjectURL:  objectURL,
		CID:        pin.CID,
		GatewayURL: pin.GatewayURL,
	}, nil
}

// Retract deletes the object-store copy only. Failures are logged, never
// propagated: by the time retraction runs the pinned copies already exist.
func (p *DualPublisher) Retract(ctx context.Context, name string) {
	if err := p.store.Delete(ctx, name); err != nil {
		p.log.Warn("retraction failed", zap.String("object", name), zap.Error(err))
		return
	}
	p.log.Info("object retracted", zap.String("object", name))
}
