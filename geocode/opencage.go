// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/urnamapa/urnamapa/spatial"
)

// OpenCageURL is the forward geocoding endpoint.
const OpenCageURL = "https://api.opencagedata.com/geocode/v1/json"

// OpenCage uses the OpenCage Geocoding API.
type OpenCage struct {
	APIKey      string
	BaseURL     string
	CountryCode string
	Client      *http.Client
}

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Confidence int    `json:"confidence"`
		Formatted  string `json:"formatted"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Geocode implements Geocoder. The first candidate wins.
func (g *OpenCage) Geocode(ctx context.Context, address string) (spatial.Point, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("key", g.APIKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")

	if g.CountryCode != "" {
		params.Set("countrycode", g.CountryCode)
	}

	base := g.BaseURL
	if base == "" {
		base = OpenCageURL
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	var resp openCageResponse
	if err := getJSON(ctx, client, base+"?"+params.Encode(), &resp); err != nil {
		return spatial.Point{}, err
	}

	// OpenCage mirrors the HTTP status in the body
	if resp.Status.Code != 0 && resp.Status.Code != http.StatusOK {
		return spatial.Point{}, ClassifyHTTPError(resp.Status.Code, resp.Status.Message)
	}

	if len(resp.Results) == 0 {
		return spatial.Point{}, notFound(address)
	}

	r := resp.Results[0]

	p := spatial.Point{Lat: r.Geometry.Lat, Lng: r.Geometry.Lng}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, &Error{Type: ErrorTypeUnknown, Message: "provider returned " + p.String(), Err: err}
	}

	return p, nil
}
