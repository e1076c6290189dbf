package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hansupo/shad-label/internal/domain"
)

func newTestTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "labels-test",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "label-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return srv, topic
}

func TestLabelEventPublisherPublishesMessage(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewLabelEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewLabelEventPublisher: %v", err)
	}
	defer publisher.Stop()

	event := domain.LabelEvent{
		Type:       domain.EventLabelGenerated,
		ID:         "01EXP",
		TemplateID: "01TPL",
		ProductID:  "01PRD",
		ExportURI:  "gs://labels/exports/labels/01TPL/01EXP/label.pdf",
		OccurredAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	if _, err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload domain.LabelEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ID != event.ID || payload.ExportURI != event.ExportURI {
		t.Fatalf("unexpected payload %#v", payload)
	}
	attrs := messages[0].Attributes
	if attrs["eventType"] != domain.EventLabelGenerated || attrs["templateId"] != "01TPL" || attrs["productId"] != "01PRD" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}

func TestLabelEventPublisherOmitsEmptyAttributes(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, _ := NewLabelEventPublisher(topic)
	defer publisher.Stop()

	if _, err := publisher.Publish(context.Background(), domain.LabelEvent{Type: domain.EventProductsImported, Count: 3}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	attrs := srv.Messages()[0].Attributes
	if _, ok := attrs["templateId"]; ok {
		t.Fatalf("templateId attribute should be omitted: %v", attrs)
	}
	if _, err := publisher.Publish(context.Background(), domain.LabelEvent{}); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := NewLabelEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
