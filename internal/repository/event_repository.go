package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventradar/notify-engine/internal/models"
)

// EventRepository stores event records durably so a re-triggered matching
// workflow re-reads the same immutable record.
type EventRepository interface {
	Create(ctx context.Context, event models.Event) (models.Event, error)
	GetByID(ctx context.Context, eventID string) (models.Event, error)
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event models.Event) (models.Event, error) {
	const query = `
		INSERT INTO notify.events (id, title, category, city_name, latitude, longitude, occurs_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, title, category, city_name, latitude, longitude, occurs_at, created_at
	`

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	var cityName interface{}
	if trimmed := strings.TrimSpace(event.CityName); trimmed != "" {
		cityName = trimmed
	}

	var latitude, longitude interface{}
	if event.Coordinates != nil {
		latitude = event.Coordinates.Latitude
		longitude = event.Coordinates.Longitude
	}

	row := r.db.QueryRowContext(ctx, query, id, event.Title, event.Category, cityName, latitude, longitude, event.OccursAt.UTC())
	return scanEvent(row)
}

func (r *eventRepository) GetByID(ctx context.Context, eventID string) (models.Event, error) {
	const query = `
		SELECT id, title, category, city_name, latitude, longitude, occurs_at, created_at
		FROM notify.events
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, eventID)
	return scanEvent(row)
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Event, error) {
	var (
		event     models.Event
		cityName  sql.NullString
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		occursAt  time.Time
	)

	if err := scanner.Scan(
		&event.ID,
		&event.Title,
		&event.Category,
		&cityName,
		&latitude,
		&longitude,
		&occursAt,
		&event.CreatedAt,
	); err != nil {
		return models.Event{}, err
	}

	if cityName.Valid {
		event.CityName = cityName.String
	}
	if latitude.Valid && longitude.Valid {
		event.Coordinates = &models.Coordinates{
			Latitude:  latitude.Float64,
			Longitude: longitude.Float64,
		}
	}
	event.OccursAt = occursAt.UTC()

	return event, nil
}
