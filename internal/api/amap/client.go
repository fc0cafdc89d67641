package amap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meetspot/meetspot-api/internal/types"
)

// Client talks to the Amap MCP gateway. Every tool is a JSON POST with a
// bearer token; the per-call timeout must stay below the session timeout so a
// stuck provider call cannot wedge a whole session.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (c *Client) post(ctx context.Context, tool string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", tool, err)
	}

	c.logger.DebugContext(ctx, "calling provider tool", slog.String("tool", tool))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+tool, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", tool, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", tool, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s request failed: status %d", tool, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", tool, err)
	}
	return nil
}

// FormatLocation renders a coordinate the way the provider expects it,
// longitude first.
func FormatLocation(c types.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Longitude, c.Latitude)
}

// ParseLocation splits a provider "lng,lat" string.
func ParseLocation(s string) (lng, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed location %q", s)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed longitude in %q: %w", s, err)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed latitude in %q: %w", s, err)
	}
	return lng, lat, nil
}

// --- forward/reverse geocoding ---

type Geocode struct {
	Location         string `json:"location"`
	FormattedAddress string `json:"formatted_address"`
	Province         string `json:"province"`
	City             string `json:"city"`
}

type GeoResponse struct {
	Geocodes []Geocode `json:"geocodes"`
}

func (c *Client) Geo(ctx context.Context, address, city string) (*GeoResponse, error) {
	payload := struct {
		Address string `json:"address"`
		City    string `json:"city"`
	}{Address: address, City: city}

	var out GeoResponse
	if err := c.post(ctx, "maps_geo", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ReGeocodeResponse struct {
	Regeocode struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"regeocode"`
}

func (c *Client) ReGeocode(ctx context.Context, location string) (*ReGeocodeResponse, error) {
	payload := struct {
		Location string `json:"location"`
	}{Location: location}

	var out ReGeocodeResponse
	if err := c.post(ctx, "maps_regeocode", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- POI search ---

type POI struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	Tel          string `json:"tel"`
	Website      string `json:"website"`
	BusinessArea string `json:"business_area"`
}

type SearchResponse struct {
	Pois []POI `json:"pois"`
}

func (c *Client) AroundSearch(ctx context.Context, location, keywords string, radius int) (*SearchResponse, error) {
	payload := struct {
		Location string `json:"location"`
		Keywords string `json:"keywords,omitempty"`
		Radius   int    `json:"radius"`
	}{Location: location, Keywords: keywords, Radius: radius}

	var out SearchResponse
	if err := c.post(ctx, "maps_around_search", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TextSearch(ctx context.Context, keywords, poiTypes, city string) (*SearchResponse, error) {
	payload := struct {
		Keywords string `json:"keywords"`
		Types    string `json:"types,omitempty"`
		City     string `json:"city"`
	}{Keywords: keywords, Types: poiTypes, City: city}

	var out SearchResponse
	if err := c.post(ctx, "maps_text_search", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchDetail(ctx context.Context, poiID string) (*SearchResponse, error) {
	payload := struct {
		ID string `json:"id"`
	}{ID: poiID}

	var out SearchResponse
	if err := c.post(ctx, "maps_search_detail", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- distance ---

type DistanceResponse struct {
	Results []struct {
		Distance float64 `json:"distance"`
	} `json:"results"`
}

// Distance types understood by maps_distance: 0 straight line, 1 driving,
// 3 walking.
func (c *Client) Distance(ctx context.Context, origins, destination string, distanceType int) (*DistanceResponse, error) {
	payload := struct {
		Origins     string `json:"origins"`
		Destination string `json:"destination"`
		Type        int    `json:"type"`
	}{Origins: origins, Destination: destination, Type: distanceType}

	var out DistanceResponse
	if err := c.post(ctx, "maps_distance", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- directions ---

type Step struct {
	Instruction string `json:"instruction"`
}

type Path struct {
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
	Steps    []Step  `json:"steps"`
}

// DirectionResponse covers the walking and driving endpoints, which share a
// shape.
type DirectionResponse struct {
	Route struct {
		Paths []Path `json:"paths"`
	} `json:"route"`
}

// BicyclingResponse nests its paths under "data" rather than "route".
type BicyclingResponse struct {
	Data struct {
		Paths []Path `json:"paths"`
	} `json:"data"`
}

type Busline struct {
	Name     string `json:"name"`
	ViaStops int    `json:"via_stops"`
}

type TransitSegment struct {
	Walking *struct {
		Distance float64 `json:"distance"`
	} `json:"walking,omitempty"`
	Bus *struct {
		Buslines []Busline `json:"buslines"`
	} `json:"bus,omitempty"`
	Railway *struct {
		Name     string `json:"name"`
		ViaStops int    `json:"via_stops"`
	} `json:"railway,omitempty"`
}

type Transit struct {
	Duration float64          `json:"duration"`
	Distance float64          `json:"distance"`
	Segments []TransitSegment `json:"segments"`
}

type TransitResponse struct {
	Route struct {
		Transits []Transit `json:"transits"`
	} `json:"route"`
}

type originDestination struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (c *Client) DirectionWalking(ctx context.Context, origin, destination string) (*DirectionResponse, error) {
	var out DirectionResponse
	if err := c.post(ctx, "maps_direction_walking", originDestination{origin, destination}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DirectionDriving(ctx context.Context, origin, destination string) (*DirectionResponse, error) {
	var out DirectionResponse
	if err := c.post(ctx, "maps_direction_driving", originDestination{origin, destination}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DirectionBicycling(ctx context.Context, origin, destination string) (*BicyclingResponse, error) {
	var out BicyclingResponse
	if err := c.post(ctx, "maps_bicycling", originDestination{origin, destination}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DirectionTransit(ctx context.Context, origin, destination, city, cityd string) (*TransitResponse, error) {
	payload := struct {
		Origin      string `json:"origin"`
		Destination string `json:"destination"`
		City        string `json:"city"`
		Cityd       string `json:"cityd"`
	}{Origin: origin, Destination: destination, City: city, Cityd: cityd}

	var out TransitResponse
	if err := c.post(ctx, "maps_direction_transit_integrated", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- weather ---

type WeatherResponse struct {
	City      string `json:"city"`
	Forecasts []struct {
		Date         string `json:"date"`
		DayWeather   string `json:"dayWeather"`
		NightWeather string `json:"nightWeather"`
		DayTemp      string `json:"dayTemp"`
		NightTemp    string `json:"nightTemp"`
	} `json:"forecasts"`
}

func (c *Client) Weather(ctx context.Context, city string) (*WeatherResponse, error) {
	payload := struct {
		City string `json:"city"`
	}{City: city}

	var out WeatherResponse
	if err := c.post(ctx, "maps_weather", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
