package services

import (
	"context"
	"errors"
	"testing"
)

func newTestTemplateService(t *testing.T, repo *memoryTemplates) TemplateService {
	t.Helper()
	svc, err := NewTemplateService(TemplateServiceDeps{
		Templates:   repo,
		Clock:       fixedClock,
		IDGenerator: sequentialIDs("tpl-"),
	})
	if err != nil {
		t.Fatalf("NewTemplateService: %v", err)
	}
	return svc
}

func TestTemplateServiceCreateRequiresNameAndHTML(t *testing.T) {
	svc := newTestTemplateService(t, newMemoryTemplates())
	for _, cmd := range []TemplateCommand{{Name: "A6"}, {HTML: "<p></p>"}, {Name: " ", HTML: " "}} {
		_, err := svc.Create(context.Background(), cmd)
		if !errors.Is(err, ErrTemplateInvalidInput) || Message(err) != msgTemplateNameHTMLRequired {
			t.Fatalf("Create(%+v) = %v", cmd, err)
		}
	}
}

func TestTemplateServiceLifecycle(t *testing.T) {
	svc := newTestTemplateService(t, newMemoryTemplates())
	ctx := context.Background()

	created, err := svc.Create(ctx, TemplateCommand{Name: " A6 ", HTML: "<h1>{{productName}}</h1>"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "tpl-001" || created.Name != "A6" {
		t.Fatalf("unexpected template %+v", created)
	}

	updated, err := svc.Update(ctx, created.ID, TemplateCommand{Name: "A6 label", HTML: "<p>{{Color}}</p>"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "A6 label" || updated.HTML != "<p>{{Color}}</p>" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected update %+v", updated)
	}

	dup, err := svc.Duplicate(ctx, created.ID)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.ID == created.ID || dup.Name != "A6 label (Copy)" || dup.HTML != updated.HTML {
		t.Fatalf("unexpected duplicate %+v", dup)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = svc.Get(ctx, created.ID)
	if !errors.Is(err, ErrTemplateNotFound) || Message(err) != msgTemplateNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Duplicate(ctx, created.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected not found on duplicate, got %v", err)
	}
}

func TestTemplateServiceListEmpty(t *testing.T) {
	svc := newTestTemplateService(t, newMemoryTemplates())
	templates, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if templates == nil || len(templates) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", templates)
	}
}
