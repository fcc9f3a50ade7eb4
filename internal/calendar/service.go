package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxTitleLength = 200

// EventDTO is the API shape of a calendar event.
type EventDTO struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Start      *time.Time `json:"start"`
	AllDay     bool       `json:"all_day"`
	Color      string     `json:"color"`
	IsTemplate bool       `json:"is_template"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EventInput is used by create and full update.
type EventInput struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Start      *time.Time `json:"start"`
	AllDay     bool       `json:"all_day"`
	Color      string     `json:"color" validate:"omitempty,max=20"`
	IsTemplate bool       `json:"is_template"`
}

// ListEventsInput selects the calendar feed (Scheduled), templates, or a window.
type ListEventsInput struct {
	Scheduled bool
	Templates *bool
	From      *time.Time
	To        *time.Time
}

type Service interface {
	ListEvents(ctx context.Context, input ListEventsInput) ([]EventDTO, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*EventDTO, error)
	CreateEvent(ctx context.Context, input EventInput) (*EventDTO, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, input EventInput) (*EventDTO, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("calendar repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListEvents(ctx context.Context, input ListEventsInput) ([]EventDTO, error) {
	if input.From != nil && input.To != nil && !input.From.Before(*input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	rows, err := s.repo.List(ctx, eventQuery(input))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list events")
	}
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*EventDTO, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(event)
	return &dto, nil
}

func (s *service) CreateEvent(ctx context.Context, input EventInput) (*EventDTO, error) {
	event := &models.Event{}
	if err := apply(event, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert event")
	}
	dto := toDTO(event)
	return &dto, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, input EventInput) (*EventDTO, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(event, input); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update event")
	}
	dto := toDTO(event)
	return &dto, nil
}

func (s *service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete event")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load event")
	}
	return event, nil
}

func apply(event *models.Event, input EventInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "title must be at most %d characters", maxTitleLength)
	}
	color := strings.ToLower(strings.TrimSpace(input.Color))
	if color == "" {
		color = models.DefaultEventColor
	}

	event.Title = title
	event.Color = color
	event.AllDay = input.AllDay
	event.IsTemplate = input.IsTemplate
	event.Start = nil
	if input.Start != nil {
		start := input.Start.UTC()
		event.Start = &start
	}
	return nil
}

func toDTO(event *models.Event) EventDTO {
	return EventDTO{
		ID:         event.ID,
		Title:      event.Title,
		Start:      event.Start,
		AllDay:     event.AllDay,
		Color:      event.Color,
		IsTemplate: event.IsTemplate,
		CreatedAt:  event.CreatedAt,
		UpdatedAt:  event.UpdatedAt,
	}
}
