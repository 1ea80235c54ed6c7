package duffel

import "github.com/voyago/booking-api/internal/domain"

// translateOffers converts Duffel offers to domain offers.
func translateOffers(offers []offer) []domain.Offer {
	result := make([]domain.Offer, 0, len(offers))
	for i := range offers {
		result = append(result, translateOffer(&offers[i]))
	}

	return result
}

// translateOffer converts a single Duffel offer to a domain offer. Segment
// duration is derived from the timestamps rather than Duffel's ISO 8601
// duration field.
func translateOffer(ext *offer) domain.Offer {
	var segments []domain.Segment
	for _, slice := range ext.Slices {
		for _, seg := range slice.Segments {
			segments = append(segments, domain.Segment{
				Origin:       seg.Origin.IATACode,
				Destination:  seg.Destination.IATACode,
				DepartureAt:  seg.DepartingAt,
				ArrivalAt:    seg.ArrivingAt,
				Carrier:      seg.MarketingCarrier.IATACode,
				FlightNumber: seg.MarketingCarrier.IATACode + seg.MarketingCarrierFlightNumber,
				Duration:     seg.ArrivingAt.Sub(seg.DepartingAt),
			})
		}
	}

	return domain.Offer{
		ID:          ext.ID,
		Provider:    providerName,
		TotalAmount: ext.TotalAmount,
		Currency:    ext.TotalCurrency,
		ExpiresAt:   ext.ExpiresAt,
		Segments:    segments,
	}
}
