package compute

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	computeapi "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCE controls a Compute Engine instance through the compute v1 API.
type GCE struct {
	svc      *computeapi.Service
	project  string
	zone     string
	instance string
}

func NewGCE(ctx context.Context, project, zone, instance string, opts ...option.ClientOption) (*GCE, error) {
	svc, err := computeapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create compute service: %w", err)
	}
	return &GCE{svc: svc, project: project, zone: zone, instance: instance}, nil
}

func (g *GCE) Metadata(ctx context.Context) (Metadata, error) {
	inst, err := g.svc.Instances.Get(g.project, g.zone, g.instance).Context(ctx).Do()
	if err != nil {
		return Metadata{}, fmt.Errorf("get instance %s: %w", g.instance, err)
	}
	if inst.Metadata == nil {
		return Metadata{}, nil
	}

	md := Metadata{Fingerprint: inst.Metadata.Fingerprint}
	for _, it := range inst.Metadata.Items {
		if it == nil {
			continue
		}
		var v string
		if it.Value != nil {
			v = *it.Value
		}
		md.Items = append(md.Items, Item{Key: it.Key, Value: v})
	}
	return md, nil
}

func (g *GCE) SetMetadata(ctx context.Context, fingerprint string, items []Item) error {
	body := &computeapi.Metadata{Fingerprint: fingerprint}
	for _, it := range items {
		v := it.Value
		body.Items = append(body.Items, &computeapi.MetadataItems{Key: it.Key, Value: &v})
	}

	op, err := g.svc.Instances.SetMetadata(g.project, g.zone, g.instance, body).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrStaleFingerprint
		}
		return fmt.Errorf("set metadata on %s: %w", g.instance, err)
	}
	return g.wait(ctx, op)
}

func (g *GCE) Start(ctx context.Context) error {
	if _, err := g.svc.Instances.Start(g.project, g.zone, g.instance).Context(ctx).Do(); err != nil {
		return fmt.Errorf("start instance %s: %w", g.instance, err)
	}
	return nil
}

// wait blocks until a zonal operation is DONE. ZoneOperations.Wait
// returns early on its own deadline, so it is polled in a loop.
func (g *GCE) wait(ctx context.Context, op *computeapi.Operation) error {
	for op.Status != "DONE" {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := g.svc.ZoneOperations.Wait(g.project, g.zone, op.Name).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("wait for operation %s: %w", op.Name, err)
		}
		op = next
	}
	return operationError(op)
}

func operationError(op *computeapi.Operation) error {
	if op.Error == nil || len(op.Error.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(op.Error.Errors))
	for _, e := range op.Error.Errors {
		if e == nil {
			continue
		}
		if strings.Contains(e.Code, "FINGERPRINT") {
			return ErrStaleFingerprint
		}
		msgs = append(msgs, e.Code+": "+e.Message)
	}
	return fmt.Errorf("operation %s failed: %s", op.Name, strings.Join(msgs, "; "))
}
