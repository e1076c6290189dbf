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
	msgTemplateNameHTMLRequired = "Name and HTML are required"
	msgTemplateNotFound         = "Label template not found"
	copySuffix                  = " (Copy)"
)

type TemplateServiceDeps struct {
	Templates   repositories.TemplateRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type templateService struct {
	repo   repositories.TemplateRepository
	now    func() time.Time
	newID  func() string
	logger Logger
}

var _ TemplateService = (*templateService)(nil)

func NewTemplateService(deps TemplateServiceDeps) (TemplateService, error) {
	if deps.Templates == nil {
		return nil, errors.New("template service: repository is required")
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
	return &templateService{
		repo:   deps.Templates,
		now:    func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *templateService) List(ctx context.Context) ([]domain.LabelTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil)
	}
	if templates == nil {
		templates = []domain.LabelTemplate{}
	}
	return templates, nil
}

func (s *templateService) Get(ctx context.Context, id string) (domain.LabelTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.LabelTemplate{}, translateRepoError(err, withMessage(ErrTemplateNotFound, msgTemplateNotFound), nil)
	}
	return tpl, nil
}

func (s *templateService) Create(ctx context.Context, cmd TemplateCommand) (domain.LabelTemplate, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || strings.TrimSpace(cmd.HTML) == "" {
		return domain.LabelTemplate{}, withMessage(ErrTemplateInvalidInput, msgTemplateNameHTMLRequired)
	}
	return s.insert(ctx, name, cmd.HTML)
}

// Update replaces name and HTML. Both are required, as on create.
func (s *templateService) Update(ctx context.Context, id string, cmd TemplateCommand) (domain.LabelTemplate, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || strings.TrimSpace(cmd.HTML) == "" {
		return domain.LabelTemplate{}, withMessage(ErrTemplateInvalidInput, msgTemplateNameHTMLRequired)
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return domain.LabelTemplate{}, err
	}
	tpl.Name = name
	tpl.HTML = cmd.HTML
	tpl.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, tpl); err != nil {
		return domain.LabelTemplate{}, translateRepoError(err, withMessage(ErrTemplateNotFound, msgTemplateNotFound), nil)
	}
	s.logger(ctx, "template.updated", map[string]any{"templateId": tpl.ID, "name": tpl.Name})
	return tpl, nil
}

func (s *templateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return translateRepoError(err, withMessage(ErrTemplateNotFound, msgTemplateNotFound), nil)
	}
	s.logger(ctx, "template.deleted", map[string]any{"templateId": id})
	return nil
}

// Duplicate stores a copy of the template named "<name> (Copy)".
func (s *templateService) Duplicate(ctx context.Context, id string) (domain.LabelTemplate, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return domain.LabelTemplate{}, err
	}
	return s.insert(ctx, src.Name+copySuffix, src.HTML)
}

func (s *templateService) insert(ctx context.Context, name, html string) (domain.LabelTemplate, error) {
	now := s.now()
	tpl := domain.LabelTemplate{
		ID:        s.newID(),
		Name:      name,
		HTML:      html,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tpl); err != nil {
		return domain.LabelTemplate{}, translateRepoError(err, nil, nil)
	}
	s.logger(ctx, "template.created", map[string]any{"templateId": tpl.ID, "name": tpl.Name})
	return tpl, nil
}
