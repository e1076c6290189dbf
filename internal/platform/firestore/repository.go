package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Codec converts between a domain value and its Firestore document.
type Codec[T any] struct {
	Encode func(value T) any
	Decode func(id string, snap *firestore.DocumentSnapshot) (T, error)
}

// QueryBuilder customises a collection query.
type QueryBuilder func(q firestore.Query) firestore.Query

// Collection offers typed CRUD over one collection.
type Collection[T any] struct {
	provider *Provider
	name     string
	codec    Codec[T]
}

func NewCollection[T any](provider *Provider, name string, codec Codec[T]) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name), codec: codec}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Ref returns the collection reference, for transactions and custom queries.
func (c *Collection[T]) Ref(ctx context.Context) (*firestore.CollectionRef, error) {
	if c.provider == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, WrapError(c.op("connect"), err)
	}
	return client.Collection(c.name), nil
}

// Create inserts a new document and fails with a conflict when id exists.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) error {
	doc, err := c.doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Create(ctx, c.codec.Encode(value))
	return WrapError(c.op("create"), err)
}

// Set overwrites the document.
func (c *Collection[T]) Set(ctx context.Context, id string, value T) error {
	doc, err := c.doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, c.codec.Encode(value))
	return WrapError(c.op("set"), err)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.doc(ctx, id)
	if err != nil {
		return zero, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return zero, WrapError(c.op("get"), err)
	}
	return c.codec.Decode(snap.Ref.ID, snap)
}

// Delete removes the document, returning a not-found error when it does not exist.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	doc, err := c.doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx, firestore.Exists)
	return WrapError(c.op("delete"), err)
}

// Query runs build against the collection and decodes every document.
func (c *Collection[T]) Query(ctx context.Context, build QueryBuilder) ([]T, error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	query := ref.Query
	if build != nil {
		query = build(query)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.op("query"), err)
		}
		value, err := c.codec.Decode(snap.Ref.ID, snap)
		if err != nil {
			return nil, fmt.Errorf("firestore: decode %s/%s: %w", c.name, snap.Ref.ID, err)
		}
		out = append(out, value)
	}
}

// DeleteAll removes every document with a BulkWriter and returns how many were deleted.
func (c *Collection[T]) DeleteAll(ctx context.Context) (int, error) {
	client, err := c.provider.Client(ctx)
	if err != nil {
		return 0, WrapError(c.op("connect"), err)
	}
	refs, err := client.Collection(c.name).DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, WrapError(c.op("list"), err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	writer := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := writer.Delete(ref)
		if err != nil {
			writer.End()
			return 0, WrapError(c.op("delete_all"), err)
		}
		jobs = append(jobs, job)
	}
	writer.End()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return deleted, WrapError(c.op("delete_all"), err)
		}
		deleted++
	}
	return deleted, nil
}

func (c *Collection[T]) doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NotFoundError(c.op("doc"), errors.New("document id is required"))
	}
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	return ref.Doc(id), nil
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}
