package payload

import (
	"strings"

	"github.com/zhouzirui/whats-eat/backend/internal/model/chat"
)

// CardIdentity returns the key two cards are considered the same place by:
// the place id, or "name::address" when the id is blank.
func CardIdentity(card chat.RestaurantCard) string {
	if id := strings.TrimSpace(card.PlaceID); id != "" {
		return id
	}
	name := strings.ToLower(strings.TrimSpace(card.Name))
	address := strings.ToLower(strings.TrimSpace(card.Address))
	if name == "" && address == "" {
		return ""
	}
	return name + "::" + address
}

// Signature identifies a payload by its ordered card identities. Two emissions
// of the same result narrated differently share a signature.
func Signature(p *chat.SupervisorPayload) string {
	if p == nil {
		return ""
	}
	ids := make([]string, 0, len(p.Cards))
	for _, card := range p.Cards {
		ids = append(ids, CardIdentity(card))
	}
	return strings.Join(ids, "|")
}

// DedupeCards collapses cards sharing an identity into the first occurrence.
// Blank fields of the survivor are filled from later duplicates and list
// fields are unioned.
func DedupeCards(cards []chat.RestaurantCard) []chat.RestaurantCard {
	if len(cards) < 2 {
		return cards
	}
	index := make(map[string]int, len(cards))
	out := make([]chat.RestaurantCard, 0, len(cards))
	for _, card := range cards {
		id := CardIdentity(card)
		if id == "" {
			out = append(out, card)
			continue
		}
		if at, ok := index[id]; ok {
			out[at] = mergeCard(out[at], card)
			continue
		}
		index[id] = len(out)
		out = append(out, card)
	}
	return out
}

func mergeCard(dst, src chat.RestaurantCard) chat.RestaurantCard {
	fill := func(target *string, value string) {
		if *target == "" {
			*target = value
		}
	}
	fill(&dst.Name, src.Name)
	fill(&dst.Address, src.Address)
	fill(&dst.GoogleMapsURI, src.GoogleMapsURI)
	fill(&dst.PriceLevel, src.PriceLevel)
	fill(&dst.Deeplink, src.Deeplink)
	fill(&dst.Summary, src.Summary)

	if dst.DistanceKm == nil {
		dst.DistanceKm = src.DistanceKm
	}
	if dst.Rating == nil {
		dst.Rating = src.Rating
	}
	if dst.UserRatingCount == nil {
		dst.UserRatingCount = src.UserRatingCount
	}
	if dst.Opens == nil {
		dst.Opens = src.Opens
	}

	dst.Types = dedupeStrings(append(append([]string{}, dst.Types...), src.Types...))
	dst.Tags = dedupeStrings(append(append([]string{}, dst.Tags...), src.Tags...))
	dst.Why = dedupeStrings(append(append([]string{}, dst.Why...), src.Why...))
	dst.Photos = dedupeStrings(append(append([]string{}, dst.Photos...), src.Photos...))
	return dst
}
