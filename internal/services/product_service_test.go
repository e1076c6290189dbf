package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/metrics"
)

func newTestProductService(t *testing.T, repo *memoryProducts, events EventPublisher, m *metrics.Metrics) ProductService {
	t.Helper()
	svc, err := NewProductService(ProductServiceDeps{
		Products:    repo,
		Events:      events,
		Metrics:     m,
		Clock:       fixedClock,
		IDGenerator: sequentialIDs("p-"),
	})
	if err != nil {
		t.Fatalf("NewProductService: %v", err)
	}
	return svc
}

func TestProductServiceImportStoresProductsAndPublishes(t *testing.T) {
	repo := newMemoryProducts()
	events := &recordingPublisher{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := newTestProductService(t, repo, events, m)
	ctx := context.Background()

	res, err := svc.Import(ctx, ImportProductsCommand{Products: []ProductInput{
		{Name: " Helmet ", Attributes: map[string]string{"Color": "Black", " ": "dropped"}},
		{Name: "Bike", Attributes: map[string]string{"Size": "54"}},
	}})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Count != 2 || len(res.IDs) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	products, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, p := range products {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"Bike", "Helmet"}, names); diff != "" {
		t.Fatalf("expected newest first (-want +got):\n%s", diff)
	}
	helmet, err := svc.Get(ctx, res.IDs[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"Color": "Black"}, helmet.Attributes); diff != "" {
		t.Fatalf("unexpected attributes (-want +got):\n%s", diff)
	}

	if len(events.events) != 1 || events.events[0].Type != domain.EventProductsImported || events.events[0].Count != 2 {
		t.Fatalf("unexpected events %+v", events.events)
	}
	if got := testutil.ToFloat64(m.ImportedProducts.WithLabelValues("json")); got != 2 {
		t.Fatalf("expected 2 imported products metric, got %v", got)
	}
}

func TestProductServiceImportValidation(t *testing.T) {
	svc := newTestProductService(t, newMemoryProducts(), nil, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, ImportProductsCommand{})
	if !errors.Is(err, ErrProductInvalidInput) || Message(err) != msgNoProducts {
		t.Fatalf("expected no products error, got %v", err)
	}
	_, err = svc.Import(ctx, ImportProductsCommand{Products: []ProductInput{{Name: "ok"}, {Name: "  "}}})
	if !errors.Is(err, ErrProductInvalidInput) || Message(err) != msgProductNameInvalid {
		t.Fatalf("expected name error, got %v", err)
	}
}

func TestProductServiceImportSurvivesPublishFailure(t *testing.T) {
	events := &recordingPublisher{err: errBoom}
	svc := newTestProductService(t, newMemoryProducts(), events, nil)
	res, err := svc.Import(context.Background(), ImportProductsCommand{Products: []ProductInput{{Name: "Helmet"}}})
	if err != nil || res.Count != 1 {
		t.Fatalf("Import = %+v, %v", res, err)
	}
}

func TestProductServiceSearchDeleteFlush(t *testing.T) {
	repo := newMemoryProducts(
		domain.Product{ID: "p1", Name: "Helmet", Attributes: map[string]string{"Color": "Black"}, CreatedAt: testNow},
		domain.Product{ID: "p2", Name: "Bike", Attributes: map[string]string{"Color": "Red"}, CreatedAt: testNow.Add(1)},
	)
	svc := newTestProductService(t, repo, nil, nil)
	ctx := context.Background()

	found, err := svc.List(ctx, "  RED ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(found) != 1 || found[0].ID != "p2" {
		t.Fatalf("unexpected search result %+v", found)
	}

	if err := svc.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "p1"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	n, err := svc.Flush(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v", n, err)
	}
}

func TestDecodeProductImport(t *testing.T) {
	body := []byte(`{"products":[{"name":"Helmet","attributes":{"Price":49.9,"Stock":3,"Used":false,"Note":null,"Dims":{"w": 1},"Color":"Black"}}]}`)
	got, err := DecodeProductImport(body)
	if err != nil {
		t.Fatalf("DecodeProductImport: %v", err)
	}
	want := []ProductInput{{
		Name: "Helmet",
		Attributes: map[string]string{
			"Price": "49.9",
			"Stock": "3",
			"Used":  "false",
			"Dims":  `{"w":1}`,
			"Color": "Black",
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected decode (-want +got):\n%s", diff)
	}
}

func TestDecodeProductImportErrors(t *testing.T) {
	cases := []struct {
		body string
		msg  string
	}{
		{`{}`, msgProductsRequired},
		{`{"products":"nope"}`, msgProductsRequired},
		{`not json`, msgProductsRequired},
		{`{"products":[]}`, msgNoProducts},
		{`{"products":[{"name":"","attributes":{}}]}`, msgProductNameInvalid},
		{`{"products":[{"name":5,"attributes":{}}]}`, msgProductNameInvalid},
		{`{"products":[{"name":"Helmet"}]}`, msgProductAttrsInvalid},
		{`{"products":[{"name":"Helmet","attributes":["x"]}]}`, msgProductAttrsInvalid},
	}
	for _, tc := range cases {
		_, err := DecodeProductImport([]byte(tc.body))
		if !errors.Is(err, ErrProductInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.body, err)
		}
		if Message(err) != tc.msg {
			t.Fatalf("%s: expected %q, got %q", tc.body, tc.msg, Message(err))
		}
	}
}
