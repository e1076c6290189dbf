package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/platform/storage"
	"github.com/hansupo/shad-label/internal/repositories"
)

var testNow = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}

type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return "repository error" }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

var (
	errRepoNotFound    = repoError{notFound: true}
	errRepoConflict    = repoError{conflict: true}
	errRepoUnavailable = repoError{unavailable: true}
)

type memoryAttributes struct {
	mu    sync.Mutex
	items map[string]domain.Attribute
	err   error
}

func newMemoryAttributes(attrs ...domain.Attribute) *memoryAttributes {
	m := &memoryAttributes{items: map[string]domain.Attribute{}}
	for _, a := range attrs {
		m.items[a.ID] = a
	}
	return m
}

var _ repositories.AttributeRepository = (*memoryAttributes)(nil)

func (m *memoryAttributes) List(context.Context) ([]domain.Attribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Attribute, 0, len(m.items))
	for _, a := range m.items {
		out = append(out, a)
	}
	repositories.SortAttributes(out)
	return out, nil
}

func (m *memoryAttributes) FindByID(_ context.Context, id string) (domain.Attribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return domain.Attribute{}, errRepoNotFound
	}
	return a, nil
}

func (m *memoryAttributes) FindByName(_ context.Context, name string) (domain.Attribute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Name == name {
			return a, nil
		}
	}
	return domain.Attribute{}, errRepoNotFound
}

func (m *memoryAttributes) Insert(_ context.Context, attr domain.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Name == attr.Name {
			return errRepoConflict
		}
	}
	m.items[attr.ID] = attr
	return nil
}

func (m *memoryAttributes) Update(_ context.Context, attr domain.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[attr.ID]; !ok {
		return errRepoNotFound
	}
	for _, a := range m.items {
		if a.Name == attr.Name && a.ID != attr.ID {
			return errRepoConflict
		}
	}
	m.items[attr.ID] = attr
	return nil
}

func (m *memoryAttributes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errRepoNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryAttributes) DeleteAll(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	m.items = map[string]domain.Attribute{}
	return n, nil
}

type memoryProducts struct {
	mu        sync.Mutex
	items     map[string]domain.Product
	insertErr error
}

func newMemoryProducts(products ...domain.Product) *memoryProducts {
	m := &memoryProducts{items: map[string]domain.Product{}}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return m
}

var _ repositories.ProductRepository = (*memoryProducts)(nil)

func (m *memoryProducts) List(_ context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	repositories.SortProducts(out)
	return repositories.FilterProducts(out, filter), nil
}

func (m *memoryProducts) FindByID(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return domain.Product{}, errRepoNotFound
	}
	return p, nil
}

func (m *memoryProducts) InsertMany(_ context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errRepoNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryProducts) DeleteAll(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	m.items = map[string]domain.Product{}
	return n, nil
}

type memoryTemplates struct {
	mu    sync.Mutex
	items map[string]domain.LabelTemplate
}

func newMemoryTemplates(templates ...domain.LabelTemplate) *memoryTemplates {
	m := &memoryTemplates{items: map[string]domain.LabelTemplate{}}
	for _, t := range templates {
		m.items[t.ID] = t
	}
	return m
}

var _ repositories.TemplateRepository = (*memoryTemplates)(nil)

func (m *memoryTemplates) List(context.Context) ([]domain.LabelTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LabelTemplate, 0, len(m.items))
	for _, t := range m.items {
		out = append(out, t)
	}
	repositories.SortTemplates(out)
	return out, nil
}

func (m *memoryTemplates) FindByID(_ context.Context, id string) (domain.LabelTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return domain.LabelTemplate{}, errRepoNotFound
	}
	return t, nil
}

func (m *memoryTemplates) Insert(_ context.Context, tpl domain.LabelTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[tpl.ID] = tpl
	return nil
}

func (m *memoryTemplates) Update(_ context.Context, tpl domain.LabelTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[tpl.ID]; !ok {
		return errRepoNotFound
	}
	m.items[tpl.ID] = tpl
	return nil
}

func (m *memoryTemplates) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errRepoNotFound
	}
	delete(m.items, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LabelEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.LabelEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("msg-%d", len(p.events)), nil
}

type recordingStore struct {
	uploads []storage.Upload
	err     error
}

func (s *recordingStore) Put(_ context.Context, upload storage.Upload) (storage.Object, error) {
	if s.err != nil {
		return storage.Object{}, s.err
	}
	s.uploads = append(s.uploads, upload)
	name, err := storage.BuildObjectPath(upload.Purpose, upload.Params)
	if err != nil {
		return storage.Object{}, err
	}
	return storage.Object{Bucket: "label-exports", Name: name, Size: int64(len(upload.Data))}, nil
}

type stubRenderer struct {
	document string
	data     []byte
	err      error
}

func (r *stubRenderer) Render(_ context.Context, document string) ([]byte, error) {
	r.document = document
	if r.err != nil {
		return nil, r.err
	}
	return r.data, nil
}

var errBoom = errors.New("boom")

func productFromSeed(seed SeedProduct) *domain.Product {
	return &domain.Product{ID: "seed", Name: seed.Name, Attributes: seed.Attributes}
}
