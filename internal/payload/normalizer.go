// Package payload turns loosely shaped agent output into SupervisorPayload values.
//
// The upstream agents echo Google Places responses, hand-written JSON and
// tool results in whatever naming convention the producing model picked, so
// nothing here relies on a fixed schema. Every field is resolved through a
// synonym list and a snake/camel-insensitive key match.
package payload

import (
	"encoding/json"
	"math"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

// containerKeys are checked, in order, when an object has no "cards" array.
var containerKeys = []string{
	"items",
	"results",
	"recommendations",
	"restaurants",
	"candidates",
	"data",
	"places",
	"payload.cards",
	"payload.items",
}

// Normalize converts an arbitrary decoded JSON value into a canonical payload.
// It returns nil when no usable card can be found.
func Normalize(v any) *chat.SupervisorPayload {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return NormalizeJSON(data)
}

// NormalizeJSON is Normalize for raw JSON bytes. Object keys are visited in
// document order.
func NormalizeJSON(data []byte) *chat.SupervisorPayload {
	if !gjson.ValidBytes(data) {
		return nil
	}
	return NormalizeResult(gjson.ParseBytes(data))
}

// NormalizeResult is Normalize for an already parsed gjson value.
func NormalizeResult(raw gjson.Result) *chat.SupervisorPayload {
	if raw.IsArray() {
		cards := cardsFromList(raw.Array())
		if len(cards) == 0 {
			return nil
		}
		return &chat.SupervisorPayload{Cards: cards}
	}
	if !raw.IsObject() {
		return nil
	}

	rationale, _ := coerceString(pick(raw, "rationale", "summary", "explanation", "reasoning"))

	var cards []chat.RestaurantCard
	if direct := pick(raw, "cards"); direct.IsArray() {
		cards = cardsFromList(direct.Array())
	}

	if len(cards) == 0 {
		for _, key := range containerKeys {
			container := pick(raw, key)
			if container.IsArray() && len(container.Array()) > 0 {
				cards = cardsFromList(container.Array())
				break
			}
		}
	}

	if len(cards) == 0 {
		raw.ForEach(func(_, value gjson.Result) bool {
			if !value.IsObject() && !value.IsArray() {
				return true
			}
			nested := NormalizeResult(value)
			if nested == nil {
				return true
			}
			cards = append(cards, nested.Cards...)
			if rationale == "" {
				rationale = nested.Rationale
			}
			return true
		})
		cards = DedupeCards(cards)
	}

	if len(cards) == 0 {
		if card, ok := normalizeCard(raw); ok {
			cards = append(cards, card)
		}
	}

	if len(cards) == 0 {
		return nil
	}
	return &chat.SupervisorPayload{Cards: cards, Rationale: rationale}
}

func cardsFromList(items []gjson.Result) []chat.RestaurantCard {
	cards := make([]chat.RestaurantCard, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		if card, ok := normalizeCard(item); ok {
			cards = append(cards, card)
		}
	}
	return DedupeCards(cards)
}

func normalizeCard(raw gjson.Result) (chat.RestaurantCard, bool) {
	placeID, ok := coerceString(pick(raw,
		"place_id", "placeId", "id", "places_id", "places.id", "places.placeId",
		"google_place_id", "googlePlaceId", "location_id", "locationId",
	))
	if !ok {
		placeID, ok = coerceString(pick(raw, "google_maps_uri", "googleMapsUri", "maps_url", "mapsUrl", "url"))
	}
	if !ok {
		placeID, ok = coerceString(pick(raw, "name", "displayName", "title"))
	}
	if !ok {
		return chat.RestaurantCard{}, false
	}

	name, ok := coerceString(pick(raw,
		"name", "displayName", "display_name", "title", "places_displayName", "places.displayName",
	))
	if !ok {
		name, ok = coerceString(pick(raw, "places.displayName.text", "displayName.text"))
	}
	if !ok {
		name = placeID
	}

	card := chat.RestaurantCard{
		PlaceID: placeID,
		Name:    name,
		Types: stringList(pick(raw,
			"types", "place_types", "categories", "cuisines", "places_types", "places.types",
		)),
		Tags: stringList(pick(raw, "tags", "labels", "features", "attributes", "keywords")),
		Why: stringList(pick(raw,
			"why", "reasons", "highlights", "justifications", "notes", "topReasons",
		)),
		Photos: photoURLs(pick(raw,
			"photos", "photo_urls", "photoUrls", "images", "imageUrls", "gallery",
			"photoUris", "photo_uris", "places_photos", "places.photos",
		)),
		Opens: normalizeOpens(pick(raw,
			"opens", "opening_hours", "openingHours", "current_opening_hours",
			"currentOpeningHours", "places_currentOpeningHours", "places.currentOpeningHours",
		)),
	}

	card.Address, _ = coerceString(pick(raw,
		"formatted_address", "formattedAddress", "address", "vicinity", "location",
		"places_formattedAddress", "places.formattedAddress",
	))
	card.GoogleMapsURI, _ = coerceString(pick(raw,
		"google_maps_uri", "googleMapsUri", "maps_uri", "mapsUri", "maps_url", "mapsUrl",
		"places_googleMapsUri", "places.googleMapsUri",
	))
	if deeplink, ok := coerceString(pick(raw,
		"deeplink", "deep_link", "directions_uri", "directionsUri", "directions_url",
		"directionsUrl", "navigation_url", "navigationUrl", "route_url", "routeUrl",
	)); ok {
		card.Deeplink = deeplink
	} else {
		card.Deeplink = card.GoogleMapsURI
	}
	card.PriceLevel, _ = coerceString(pick(raw, "price_level", "priceLevel", "places_priceLevel", "places.priceLevel"))
	card.Summary, _ = coerceString(pick(raw,
		"summary", "description", "short_description", "shortDescription", "overview",
		"places.generativeSummary.overview", "places.generativeSummary",
	))

	if rating, ok := coerceNumber(pick(raw, "rating", "average_rating", "avgRating", "places_rating", "places.rating")); ok {
		card.Rating = &rating
	}
	if count, ok := coerceNumber(pick(raw,
		"user_rating_count", "userRatingCount", "user_ratings_total", "userRatingsTotal",
		"review_count", "reviewCount", "places_userRatingCount", "places.userRatingCount",
	)); ok {
		n := int(math.Round(count))
		card.UserRatingCount = &n
	}

	if meters, ok := coerceNumber(pick(raw,
		"distance_meters", "distanceMeters", "distance", "distance_in_meters", "distanceInMeters",
	)); ok {
		km := meters / 1000
		card.DistanceKm = &km
	} else if km, ok := coerceNumber(pick(raw, "distance_km", "distanceKm")); ok {
		card.DistanceKm = &km
	}

	return card, true
}

func normalizeOpens(v gjson.Result) *chat.OpeningState {
	if !v.IsObject() {
		return nil
	}
	openNow, hasOpen := coerceBool(pick(v, "open_now", "openNow", "is_open", "isOpen", "today_is_open", "todayIsOpen"))
	closesAt, hasClose := coerceString(pick(v,
		"closes_at", "closesAt", "close_time", "closeTime", "closing_time", "closingTime",
		"next_close_time", "nextCloseTime",
	))
	if !hasOpen && !hasClose {
		return nil
	}
	state := &chat.OpeningState{ClosesAt: closesAt}
	if hasOpen {
		state.TodayIsOpen = &openNow
	}
	return state
}
