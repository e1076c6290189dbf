// Package jobs publishes label events to Pub/Sub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/hansupo/shad-label/internal/domain"
)

// LabelEventPublisher publishes domain.LabelEvent messages. The JSON event is the message body;
// type and ids are repeated as attributes so subscriptions can filter without decoding.
type LabelEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

func NewLabelEventPublisher(topic *pubsub.Topic) (*LabelEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("label event publisher: topic is required")
	}
	return &LabelEventPublisher{topic: topic, marshal: json.Marshal}, nil
}

// Publish sends event and waits for the server-assigned message id.
func (p *LabelEventPublisher) Publish(ctx context.Context, event domain.LabelEvent) (string, error) {
	if strings.TrimSpace(event.Type) == "" {
		return "", errors.New("label event publisher: event type is required")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal label event: %w", err)
	}

	attrs := map[string]string{"eventType": event.Type}
	setAttr(attrs, "eventId", event.ID)
	setAttr(attrs, "templateId", event.TemplateID)
	setAttr(attrs, "productId", event.ProductID)

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *LabelEventPublisher) Stop() {
	p.topic.Stop()
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
