package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dyluth/origin/internal/deployment"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/redis/go-redis/v9"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// PollForOrigin polls until ref has an origin, returning it, or until timeout.
// Polls every 200ms.
func PollForOrigin(ctx context.Context, l origin.Lookup, ref origin.DeploymentRef, timeout time.Duration) (*keyfile.Document, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for origin of deployment %s after %v", ref, timeout)

		case <-ticker.C:
			kf, err := l.LookupOrigin(ctx, ref)
			if err != nil {
				if origin.IsNoOrigin(err) {
					continue
				}
				return nil, fmt.Errorf("failed to look up origin: %w", err)
			}
			return kf, nil
		}
	}
}

// StreamOriginEvents writes every OriginEvent received on sub until ctx is
// cancelled or the subscription is closed. The caller owns sub.
func StreamOriginEvents(ctx context.Context, sub *redis.PubSub, format OutputFormat, w io.Writer) error {
	f, err := newFormatter(format, w)
	if err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event deployment.OriginEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WARN] Skipping malformed origin event: %v", err)
				continue
			}
			if err := f.FormatOriginEvent(&event, time.Now()); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

type formatter interface {
	FormatOriginEvent(event *deployment.OriginEvent, at time.Time) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault:
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{encoder: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatOriginEvent(event *deployment.OriginEvent, at time.Time) error {
	_, err := fmt.Fprintf(f.writer, "[%s] Origin updated: stateroot=%s deployment=%s digest=%s\n",
		at.Format("15:04:05"), event.Stateroot, event.Deployment, shortDigest(event.Digest))
	return err
}

type jsonFormatter struct {
	encoder *json.Encoder
}

func (f *jsonFormatter) FormatOriginEvent(event *deployment.OriginEvent, at time.Time) error {
	return f.encoder.Encode(struct {
		Event       string `json:"event"`
		TimestampMs int64  `json:"timestamp_ms"`
		*deployment.OriginEvent
	}{
		Event:       "origin_updated",
		TimestampMs: at.UnixMilli(),
		OriginEvent: event,
	})
}

// shortDigest trims "sha256:" digests to 12 hex characters.
func shortDigest(d string) string {
	const prefix = "sha256:"
	if len(d) > len(prefix)+12 && d[:len(prefix)] == prefix {
		return d[len(prefix) : len(prefix)+12]
	}
	return d
}
