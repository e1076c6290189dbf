package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hansupo/shad-label/internal/domain"
	"github.com/hansupo/shad-label/internal/repositories"
)

const (
	msgAttributeNameTypeRequired = "Name and type are required"
	msgAttributeInvalidType      = "Invalid type. Must be one of: text, url, qrcode, barcode"
	msgAttributeInvalidPriority  = "Priority must be between 1 and 100"
	msgAttributeNameExists       = "Attribute name already exists"
	msgAttributeNotFound         = "Attribute not found"
)

type AttributeServiceDeps struct {
	Attributes  repositories.AttributeRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type attributeService struct {
	repo   repositories.AttributeRepository
	now    func() time.Time
	newID  func() string
	logger Logger
}

var _ AttributeService = (*attributeService)(nil)

func NewAttributeService(deps AttributeServiceDeps) (AttributeService, error) {
	if deps.Attributes == nil {
		return nil, errors.New("attribute service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &attributeService{
		repo:   deps.Attributes,
		now:    func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *attributeService) List(ctx context.Context) ([]domain.Attribute, error) {
	attrs, err := s.repo.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil)
	}
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	return attrs, nil
}

func (s *attributeService) Get(ctx context.Context, id string) (domain.Attribute, error) {
	attr, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Attribute{}, translateRepoError(err, withMessage(ErrAttributeNotFound, msgAttributeNotFound), nil)
	}
	return attr, nil
}

func (s *attributeService) Create(ctx context.Context, cmd CreateAttributeCommand) (domain.Attribute, error) {
	name := strings.TrimSpace(cmd.Name)
	rawType := strings.TrimSpace(cmd.Type)
	if name == "" || rawType == "" {
		return domain.Attribute{}, withMessage(ErrAttributeInvalidInput, msgAttributeNameTypeRequired)
	}
	typ, ok := domain.ParseAttributeType(rawType)
	if !ok {
		return domain.Attribute{}, withMessage(ErrAttributeInvalidInput, msgAttributeInvalidType)
	}
	priority := domain.DefaultAttributePriority
	if cmd.Priority != nil {
		if !validPriority(*cmd.Priority) {
			return domain.Attribute{}, withMessage(ErrAttributeInvalidInput, msgAttributeInvalidPriority)
		}
		priority = *cmd.Priority
	}
	label := name
	if cmd.Label != nil && strings.TrimSpace(*cmd.Label) != "" {
		label = strings.TrimSpace(*cmd.Label)
	}

	now := s.now()
	attr := domain.Attribute{
		ID:        s.newID(),
		Name:      name,
		Label:     label,
		Type:      typ,
		Required:  cmd.Required != nil && *cmd.Required,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, attr); err != nil {
		return domain.Attribute{}, translateRepoError(err, nil, withMessage(ErrAttributeConflict, msgAttributeNameExists))
	}
	s.logger(ctx, "attribute.created", map[string]any{"attributeId": attr.ID, "name": attr.Name, "label": attr.Label})
	return attr, nil
}

// Update applies cmd over the stored definition. An explicitly empty label falls back to the name.
func (s *attributeService) Update(ctx context.Context, cmd UpdateAttributeCommand) (domain.Attribute, error) {
	if cmd.Type != nil && strings.TrimSpace(*cmd.Type) != "" {
		if _, ok := domain.ParseAttributeType(*cmd.Type); !ok {
			return domain.Attribute{}, withMessage(ErrAttributeInvalidInput, msgAttributeInvalidType)
		}
	}
	if cmd.Priority != nil && !validPriority(*cmd.Priority) {
		return domain.Attribute{}, withMessage(ErrAttributeInvalidInput, msgAttributeInvalidPriority)
	}

	attr, err := s.Get(ctx, cmd.ID)
	if err != nil {
		return domain.Attribute{}, err
	}
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) != "" {
		attr.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Label != nil {
		attr.Label = strings.TrimSpace(*cmd.Label)
		if attr.Label == "" {
			attr.Label = attr.Name
		}
	}
	if cmd.Type != nil && strings.TrimSpace(*cmd.Type) != "" {
		attr.Type, _ = domain.ParseAttributeType(*cmd.Type)
	}
	if cmd.Required != nil {
		attr.Required = *cmd.Required
	}
	if cmd.Priority != nil {
		attr.Priority = *cmd.Priority
	}
	attr.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, attr); err != nil {
		return domain.Attribute{}, translateRepoError(err,
			withMessage(ErrAttributeNotFound, msgAttributeNotFound),
			withMessage(ErrAttributeConflict, msgAttributeNameExists))
	}
	s.logger(ctx, "attribute.updated", map[string]any{"attributeId": attr.ID, "name": attr.Name})
	return attr, nil
}

func (s *attributeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, withMessage(ErrAttributeNotFound, msgAttributeNotFound), nil)
	}
	s.logger(ctx, "attribute.deleted", map[string]any{"attributeId": id})
	return nil
}

func (s *attributeService) DeleteAll(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, translateRepoError(err, nil, nil)
	}
	s.logger(ctx, "attribute.flushed", map[string]any{"count": n})
	return n, nil
}

func validPriority(p int) bool {
	return p >= domain.MinAttributePriority && p <= domain.MaxAttributePriority
}
