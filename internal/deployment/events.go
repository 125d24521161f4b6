package deployment

import (
	"context"
	"fmt"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"
)

// Metadata keys set on every notification.
const (
	MetadataStateroot  = "stateroot"
	MetadataDeployment = "deployment"
	MetadataDigest     = "digest"
)

// Notifier announces changed origins on a pubsub topic. The message body is
// the origin keyfile text.
type Notifier struct {
	topic *pubsub.Topic
}

// OpenNotifier opens the topic at url (mem://, or any driver linked into the binary).
func OpenNotifier(ctx context.Context, url string) (*Notifier, error) {
	topic, err := pubsub.OpenTopic(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open topic %s: %w", url, err)
	}
	return NewNotifier(topic), nil
}

// NewNotifier wraps an already opened topic.
func NewNotifier(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// OriginChanged publishes kf as the new origin of ref.
func (n *Notifier) OriginChanged(ctx context.Context, ref origin.DeploymentRef, kf *keyfile.Document) error {
	data := kf.Marshal()
	msg := &pubsub.Message{
		Body: data,
		Metadata: map[string]string{
			MetadataStateroot:  ref.Stateroot,
			MetadataDeployment: ref.String(),
			MetadataDigest:     digest.FromBytes(data).String(),
		},
	}
	if err := n.topic.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish origin change for %s: %w", ref, err)
	}
	return nil
}

// Shutdown flushes pending messages and closes the topic.
func (n *Notifier) Shutdown(ctx context.Context) error {
	return n.topic.Shutdown(ctx)
}
