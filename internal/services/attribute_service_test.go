package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hansupo/shad-label/internal/domain"
)

func newTestAttributeService(t *testing.T, repo *memoryAttributes) AttributeService {
	t.Helper()
	svc, err := NewAttributeService(AttributeServiceDeps{
		Attributes:  repo,
		Clock:       fixedClock,
		IDGenerator: sequentialIDs("attr-"),
	})
	if err != nil {
		t.Fatalf("NewAttributeService: %v", err)
	}
	return svc
}

func TestAttributeServiceCreateAppliesDefaults(t *testing.T) {
	svc := newTestAttributeService(t, newMemoryAttributes())

	got, err := svc.Create(context.Background(), CreateAttributeCommand{Name: "  Color ", Type: "TEXT"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := domain.Attribute{
		ID:        "attr-001",
		Name:      "Color",
		Label:     "Color",
		Type:      domain.AttributeTypeText,
		Priority:  domain.DefaultAttributePriority,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected attribute (-want +got):\n%s", diff)
	}
}

func TestAttributeServiceCreateValidation(t *testing.T) {
	zero, over := 0, 101
	cases := []struct {
		name string
		cmd  CreateAttributeCommand
		msg  string
	}{
		{"missing name", CreateAttributeCommand{Type: "text"}, msgAttributeNameTypeRequired},
		{"missing type", CreateAttributeCommand{Name: "Color"}, msgAttributeNameTypeRequired},
		{"bad type", CreateAttributeCommand{Name: "Color", Type: "image"}, msgAttributeInvalidType},
		{"zero priority", CreateAttributeCommand{Name: "Color", Type: "text", Priority: &zero}, msgAttributeInvalidPriority},
		{"priority too high", CreateAttributeCommand{Name: "Color", Type: "text", Priority: &over}, msgAttributeInvalidPriority},
	}
	svc := newTestAttributeService(t, newMemoryAttributes())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.cmd)
			if !errors.Is(err, ErrAttributeInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if got := Message(err); got != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, got)
			}
		})
	}
}

func TestAttributeServiceCreateDuplicateName(t *testing.T) {
	svc := newTestAttributeService(t, newMemoryAttributes())
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateAttributeCommand{Name: "Color", Type: "text"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, CreateAttributeCommand{Name: "Color", Type: "url"})
	if !errors.Is(err, ErrAttributeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if Message(err) != msgAttributeNameExists {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestAttributeServiceUpdatePartial(t *testing.T) {
	existing := domain.Attribute{ID: "a1", Name: "Color", Label: "Värv", Type: domain.AttributeTypeText, Priority: 90, Required: true}
	repo := newMemoryAttributes(existing)
	svc := newTestAttributeService(t, repo)

	empty := ""
	priority := 10
	got, err := svc.Update(context.Background(), UpdateAttributeCommand{ID: "a1", Label: &empty, Priority: &priority})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Label != "Color" {
		t.Fatalf("expected empty label to fall back to name, got %q", got.Label)
	}
	if got.Priority != 10 || !got.Required || got.Type != domain.AttributeTypeText {
		t.Fatalf("unexpected update result %+v", got)
	}
	if !got.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected updated timestamp, got %v", got.UpdatedAt)
	}
}

func TestAttributeServiceUpdateErrors(t *testing.T) {
	repo := newMemoryAttributes(
		domain.Attribute{ID: "a1", Name: "Color", Label: "Color", Type: domain.AttributeTypeText, Priority: 90},
		domain.Attribute{ID: "a2", Name: "Size", Label: "Size", Type: domain.AttributeTypeText, Priority: 80},
	)
	svc := newTestAttributeService(t, repo)
	ctx := context.Background()

	name := "Color"
	if _, err := svc.Update(ctx, UpdateAttributeCommand{ID: "a2", Name: &name}); !errors.Is(err, ErrAttributeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, UpdateAttributeCommand{ID: "missing"}); !errors.Is(err, ErrAttributeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	typ := "hologram"
	if _, err := svc.Update(ctx, UpdateAttributeCommand{ID: "a1", Type: &typ}); !errors.Is(err, ErrAttributeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAttributeServiceListAndDelete(t *testing.T) {
	repo := newMemoryAttributes(
		domain.Attribute{ID: "a1", Name: "Size", Priority: 80},
		domain.Attribute{ID: "a2", Name: "Color", Priority: 90},
		domain.Attribute{ID: "a3", Name: "Barcode", Priority: 80},
	)
	svc := newTestAttributeService(t, repo)
	ctx := context.Background()

	attrs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	if diff := cmp.Diff([]string{"Color", "Barcode", "Size"}, names); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	if err := svc.Delete(ctx, "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "a1"); !errors.Is(err, ErrAttributeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	n, err := svc.DeleteAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
}

func TestAttributeServiceMapsUnavailable(t *testing.T) {
	repo := newMemoryAttributes()
	repo.err = errRepoUnavailable
	svc := newTestAttributeService(t, repo)
	if _, err := svc.List(context.Background()); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
