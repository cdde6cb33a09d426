// Package geocode resolves free-text address and city queries into address
// snapshots using an external Nominatim-compatible service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventdir/models"
)

// ErrNotFound is returned when the service has no result for a query.
var ErrNotFound = errors.New("geocode: no result")

// Kind selects what a query is expected to resolve to.
type Kind string

const (
	KindCity    Kind = "city"
	KindAddress Kind = "address"
)

// Resolver is the address resolution collaborator.
type Resolver interface {
	Resolve(ctx context.Context, query string, kind Kind) (models.Address, error)
}

// Client talks to a Nominatim-compatible /search endpoint.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	AddressType string `json:"addresstype"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (c *Client) Resolve(ctx context.Context, query string, kind Kind) (models.Address, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Address{}, ErrNotFound
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	if kind == KindCity {
		params.Set("featureType", "city")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Address{}, fmt.Errorf("geocode %q: status %d", query, resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return models.Address{}, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(places) == 0 {
		return models.Address{}, ErrNotFound
	}
	return toAddress(places[0], query, kind)
}

func toAddress(p place, query string, kind Kind) (models.Address, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode %q: lat: %w", query, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode %q: lon: %w", query, err)
	}

	a := p.Address
	city := firstNonEmpty(a.City, a.Town, a.Village)
	if city == "" {
		return models.Address{}, ErrNotFound
	}
	out := models.Address{
		City:        city,
		Country:     a.Country,
		CountryCode: strings.ToUpper(a.CountryCode),
		Lat:         lat,
		Lng:         lng,
		Query:       query,
	}
	if kind == KindAddress && a.Road != "" {
		out.Street = strings.TrimSpace(a.Road + " " + a.HouseNumber)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Static resolves from a fixed table keyed by lower-cased query.
type Static map[string]models.Address

func (s Static) Resolve(_ context.Context, query string, _ Kind) (models.Address, error) {
	a, ok := s[strings.ToLower(strings.TrimSpace(query))]
	if !ok {
		return models.Address{}, ErrNotFound
	}
	a.Query = query
	return a, nil
}
