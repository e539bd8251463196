// Package compose builds the user-facing notification content for an event.
// Composition is pure; a malformed event degrades to generic fallback text
// instead of blocking the fan-out.
package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/eventradar/notify-engine/internal/models"
)

// deepLinkFormat is the app-resolvable locator for event details; the client
// navigates straight to the event screen on tap.
const deepLinkFormat = "eventradar://events/%s"

const fallbackCategory = "event"

// Notification is a composed push message ready for dispatch.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deep_link"`
}

// Build composes the title, body, and deep link for one recipient.
// distanceKnown is false when either side lacks coordinates; the distance
// suffix is simply omitted then. The event time is rendered in the user's
// timezone when it is known.
func Build(event models.Event, user models.UserNotificationProfile, distanceKm float64, distanceKnown bool) Notification {
	category := strings.TrimSpace(event.Category)
	if category == "" {
		category = fallbackCategory
	}

	var title string
	if city := strings.TrimSpace(event.CityName); city != "" {
		title = fmt.Sprintf("New %s in %s!", category, city)
	} else {
		title = fmt.Sprintf("New %s near you!", category)
	}

	return Notification{
		Title:    title,
		Body:     buildBody(event, user, distanceKm, distanceKnown),
		DeepLink: fmt.Sprintf(deepLinkFormat, event.ID),
	}
}

func buildBody(event models.Event, user models.UserNotificationProfile, distanceKm float64, distanceKnown bool) string {
	body := strings.TrimSpace(event.Title)
	if body == "" {
		body = "A new event was just announced"
	}

	if !event.OccursAt.IsZero() {
		loc := time.UTC
		if user.Timezone != "" {
			if userLoc, err := time.LoadLocation(user.Timezone); err == nil {
				loc = userLoc
			}
		}
		body += " on " + event.OccursAt.In(loc).Format("Mon, Jan 2 at 3:04 PM")
	}

	if distanceKnown {
		body += fmt.Sprintf(" (%.0fkm away)", distanceKm)
	}

	return body
}
