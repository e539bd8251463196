package models

import "strings"

// UserNotificationProfile is the per-user view the engine matches against.
// It is owned by the profile subsystem; the engine treats it as read-only.
type UserNotificationProfile struct {
	UserID               string       `json:"user_id" db:"user_id"`
	PushDestination      string       `json:"push_destination,omitempty" db:"push_destination"`
	LocationCityName     string       `json:"location_city_name,omitempty" db:"location_city_name"`
	Coordinates          *Coordinates `json:"coordinates,omitempty"`
	NotificationsEnabled bool         `json:"notifications_enabled" db:"notifications_enabled"`
	PreferredCategories  []string     `json:"preferred_categories,omitempty" db:"preferred_categories"`
	WindowStartHour      int          `json:"window_start_hour" db:"window_start_hour"`
	WindowEndHour        int          `json:"window_end_hour" db:"window_end_hour"`
	Timezone             string       `json:"timezone" db:"timezone"`
}

// Reachable reports whether the user has a push destination at all.
func (p UserNotificationProfile) Reachable() bool {
	return strings.TrimSpace(p.PushDestination) != ""
}

// WantsCategory reports whether the user's category preferences admit the
// given event category. An empty preference set matches every category.
func (p UserNotificationProfile) WantsCategory(category string) bool {
	if len(p.PreferredCategories) == 0 {
		return true
	}
	for _, preferred := range p.PreferredCategories {
		if strings.EqualFold(strings.TrimSpace(preferred), strings.TrimSpace(category)) {
			return true
		}
	}
	return false
}
