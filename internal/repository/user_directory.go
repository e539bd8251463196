package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/eventradar/notify-engine/internal/models"
)

// UserDirectory is the queryable population of notification profiles. The
// geographic predicate is evaluated in SQL so the database index does the
// narrowing instead of a full scan in Go.
type UserDirectory interface {
	FindByCity(ctx context.Context, cityName string) ([]models.UserNotificationProfile, error)
	FindWithinRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.UserNotificationProfile, error)
}

type userDirectory struct {
	db *sql.DB
}

func NewUserDirectory(db *sql.DB) UserDirectory {
	return &userDirectory{db: db}
}

const profileColumns = `
	user_id, push_destination, location_city_name, latitude, longitude,
	notifications_enabled, preferred_categories, window_start_hour, window_end_hour, timezone
`

// FindByCity matches city names case-insensitively after trimming.
func (d *userDirectory) FindByCity(ctx context.Context, cityName string) ([]models.UserNotificationProfile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM notify.user_profiles
		WHERE lower(trim(location_city_name)) = lower(trim($1))
	`
	return d.queryProfiles(ctx, query, strings.TrimSpace(cityName))
}

// FindWithinRadius pushes the Haversine predicate into SQL. Mirrors
// geo.DistanceKm: same formula, same 6371 km Earth radius.
func (d *userDirectory) FindWithinRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.UserNotificationProfile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM notify.user_profiles
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		AND 2 * 6371 * asin(sqrt(
			power(sin(radians(latitude - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(latitude)) *
			power(sin(radians(longitude - $2) / 2), 2)
		)) <= $3
	`
	return d.queryProfiles(ctx, query, lat, lon, radiusKm)
}

func (d *userDirectory) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]models.UserNotificationProfile, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.UserNotificationProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func scanProfile(scanner interface {
	Scan(dest ...interface{}) error
}) (models.UserNotificationProfile, error) {
	var (
		profile         models.UserNotificationProfile
		pushDestination sql.NullString
		cityName        sql.NullString
		latitude        sql.NullFloat64
		longitude       sql.NullFloat64
		categories      pq.StringArray
	)

	if err := scanner.Scan(
		&profile.UserID,
		&pushDestination,
		&cityName,
		&latitude,
		&longitude,
		&profile.NotificationsEnabled,
		&categories,
		&profile.WindowStartHour,
		&profile.WindowEndHour,
		&profile.Timezone,
	); err != nil {
		return models.UserNotificationProfile{}, err
	}

	if pushDestination.Valid {
		profile.PushDestination = pushDestination.String
	}
	if cityName.Valid {
		profile.LocationCityName = cityName.String
	}
	if latitude.Valid && longitude.Valid {
		profile.Coordinates = &models.Coordinates{
			Latitude:  latitude.Float64,
			Longitude: longitude.Float64,
		}
	}
	profile.PreferredCategories = []string(categories)

	return profile, nil
}
