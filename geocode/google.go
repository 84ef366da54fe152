// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/urnamapa/urnamapa/spatial"
)

// GoogleMapsURL is the Geocoding API endpoint.
const GoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMaps uses the Google Maps Geocoding API.
type GoogleMaps struct {
	APIKey  string
	BaseURL string
	Region  string
	Client  *http.Client
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Geocoder.
func (g *GoogleMaps) Geocode(ctx context.Context, address string) (spatial.Point, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.APIKey)

	if g.Region != "" {
		params.Set("region", g.Region)
	}

	base := g.BaseURL
	if base == "" {
		base = GoogleMapsURL
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	var gmResp googleMapsResponse
	if err := getJSON(ctx, client, base+"?"+params.Encode(), &gmResp); err != nil {
		return spatial.Point{}, err
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return spatial.Point{}, notFound(address)
	case "OVER_QUERY_LIMIT":
		return spatial.Point{}, &Error{Type: ErrorTypeRateLimit, Message: "google maps: " + gmResp.Status}
	case "REQUEST_DENIED", "OVER_DAILY_LIMIT":
		return spatial.Point{}, &Error{Type: ErrorTypeQuotaExceeded, Message: statusMessage(gmResp)}
	case "INVALID_REQUEST":
		return spatial.Point{}, &Error{Type: ErrorTypeInvalidRequest, Message: statusMessage(gmResp)}
	default:
		return spatial.Point{}, &Error{Type: ErrorTypeUnknown, Message: statusMessage(gmResp)}
	}

	if len(gmResp.Results) == 0 {
		return spatial.Point{}, notFound(address)
	}

	loc := gmResp.Results[0].Geometry.Location

	p := spatial.Point{Lat: loc.Lat, Lng: loc.Lng}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, &Error{Type: ErrorTypeUnknown, Message: "provider returned " + p.String(), Err: err}
	}

	return p, nil
}

func statusMessage(r googleMapsResponse) string {
	if r.ErrorMessage != "" {
		return fmt.Sprintf("google maps: %s: %s", r.Status, r.ErrorMessage)
	}

	return "google maps: " + r.Status
}
