package chat

// SupervisorPayload is the structured recommendation result attached to an assistant turn.
type SupervisorPayload struct {
	Cards     []RestaurantCard `json:"cards" yaml:"cards"`
	Rationale string           `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// RestaurantCard is one recommended place. PlaceID is the identity used for
// de-duplication and UI keys.
type RestaurantCard struct {
	PlaceID         string        `json:"place_id" yaml:"place_id"`
	Name            string        `json:"name" yaml:"name"`
	Address         string        `json:"address,omitempty" yaml:"address,omitempty"`
	GoogleMapsURI   string        `json:"google_maps_uri,omitempty" yaml:"google_maps_uri,omitempty"`
	DistanceKm      *float64      `json:"distance_km,omitempty" yaml:"distance_km,omitempty"`
	PriceLevel      string        `json:"price_level,omitempty" yaml:"price_level,omitempty"`
	Rating          *float64      `json:"rating,omitempty" yaml:"rating,omitempty"`
	UserRatingCount *int          `json:"user_rating_count,omitempty" yaml:"user_rating_count,omitempty"`
	Types           []string      `json:"types" yaml:"types"`
	Tags            []string      `json:"tags" yaml:"tags"`
	Why             []string      `json:"why" yaml:"why"`
	Photos          []string      `json:"photos" yaml:"photos"`
	Opens           *OpeningState `json:"opens,omitempty" yaml:"opens,omitempty"`
	Deeplink        string        `json:"deeplink,omitempty" yaml:"deeplink,omitempty"`
	Summary         string        `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// OpeningState describes today's opening status when the upstream knows it.
type OpeningState struct {
	TodayIsOpen *bool  `json:"today_is_open,omitempty" yaml:"today_is_open,omitempty"`
	ClosesAt    string `json:"closes_at,omitempty" yaml:"closes_at,omitempty"`
}
