package climate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Geocoder turns a postcode or free-text address into coordinates.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (LatLon, error)
}

// NormalsSource provides monthly mean and minimum temperature normals.
type NormalsSource interface {
	Normals(ctx context.Context, at LatLon) (Normals, error)
}

// ElevationSource provides terrain elevation in metres.
type ElevationSource interface {
	Elevation(ctx context.Context, at LatLon) (float64, error)
}

// MaxRetries caps ClientOptions.Retries: a remote call is attempted at most twice.
const MaxRetries = 1

// ClientOptions configure the HTTP clients behind the remote providers.
// Timeout bounds a single attempt; the resolver's step timeout is the outer
// bound covering every attempt of a step and the waits between them.
type ClientOptions struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

func newClient(baseURL string, o ClientOptions) *resty.Client {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	o.Retries = min(max(o.Retries, 0), MaxRetries)
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.Timeout).
		SetRetryCount(o.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	if o.UserAgent != "" {
		c.SetHeader("User-Agent", o.UserAgent)
	}
	return c
}

func statusErr(name string, r *resty.Response) error {
	if r.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("%s: unexpected status %d", name, r.StatusCode())
}

// PostcodeLookup geocodes UK postcodes against a postcodes.io style API.
type PostcodeLookup struct {
	c *resty.Client
}

func NewPostcodeLookup(baseURL string, o ClientOptions) *PostcodeLookup {
	return &PostcodeLookup{c: newClient(baseURL, o)}
}

func (p *PostcodeLookup) Name() string { return "postcode" }

func (p *PostcodeLookup) Geocode(ctx context.Context, postcode string) (LatLon, error) {
	var body struct {
		Result *struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"result"`
	}
	resp, err := p.c.R().
		SetContext(ctx).
		SetPathParam("postcode", postcode).
		SetResult(&body).
		Get("/postcodes/{postcode}")
	if err != nil {
		return LatLon{}, fmt.Errorf("postcode lookup: %w", err)
	}
	if resp.IsError() {
		return LatLon{}, statusErr("postcode lookup", resp)
	}
	if body.Result == nil || body.Result.Latitude == nil || body.Result.Longitude == nil {
		return LatLon{}, fmt.Errorf("postcode lookup: %w", ErrNotFound)
	}
	return LatLon{Lat: *body.Result.Latitude, Lon: *body.Result.Longitude}, nil
}

// AddressSearch geocodes free text against a Nominatim style search API.
type AddressSearch struct {
	c           *resty.Client
	countryCode string
}

func NewAddressSearch(baseURL, countryCode string, o ClientOptions) *AddressSearch {
	return &AddressSearch{c: newClient(baseURL, o), countryCode: countryCode}
}

func (a *AddressSearch) Name() string { return "address_search" }

func (a *AddressSearch) Geocode(ctx context.Context, query string) (LatLon, error) {
	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	req := a.c.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&hits)
	if a.countryCode != "" {
		req.SetQueryParam("countrycodes", a.countryCode)
	}
	resp, err := req.Get("/search")
	if err != nil {
		return LatLon{}, fmt.Errorf("address search: %w", err)
	}
	if resp.IsError() {
		return LatLon{}, statusErr("address search", resp)
	}
	if len(hits) == 0 {
		return LatLon{}, fmt.Errorf("address search: %w", ErrNotFound)
	}
	return ParseLatLon(hits[0].Lat + "," + hits[0].Lon)
}

var monthKeys = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// PowerClimatology reads monthly temperature climatology from the NASA POWER
// point API (T2M for means, T2M_MIN for minima).
type PowerClimatology struct {
	c *resty.Client
}

func NewPowerClimatology(baseURL string, o ClientOptions) *PowerClimatology {
	return &PowerClimatology{c: newClient(baseURL, o)}
}

func (p *PowerClimatology) Normals(ctx context.Context, at LatLon) (Normals, error) {
	var body struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
	}
	resp, err := p.c.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"parameters": "T2M,T2M_MIN",
			"community":  "RE",
			"latitude":   strconv.FormatFloat(at.Lat, 'f', 4, 64),
			"longitude":  strconv.FormatFloat(at.Lon, 'f', 4, 64),
			"format":     "JSON",
		}).
		SetResult(&body).
		Get("/api/temporal/climatology/point")
	if err != nil {
		return Normals{}, fmt.Errorf("climate normals: %w", err)
	}
	if resp.IsError() {
		return Normals{}, statusErr("climate normals", resp)
	}

	means, mins := body.Properties.Parameter["T2M"], body.Properties.Parameter["T2M_MIN"]
	var n Normals
	for i, k := range monthKeys {
		mean, ok1 := means[k]
		low, ok2 := mins[k]
		if !ok1 || !ok2 {
			return Normals{}, fmt.Errorf("climate normals: missing %s: %w", k, ErrNoNormals)
		}
		n.Mean[i], n.Min[i] = mean, low
	}
	if c := body.Geometry.Coordinates; len(c) >= 3 {
		elev := c[2]
		n.Elevation = &elev
	}
	return n, nil
}

// OpenMeteoElevation reads terrain elevation from an Open-Meteo style API.
type OpenMeteoElevation struct {
	c *resty.Client
}

func NewOpenMeteoElevation(baseURL string, o ClientOptions) *OpenMeteoElevation {
	return &OpenMeteoElevation{c: newClient(baseURL, o)}
}

func (e *OpenMeteoElevation) Elevation(ctx context.Context, at LatLon) (float64, error) {
	var body struct {
		Elevation []float64 `json:"elevation"`
	}
	resp, err := e.c.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(at.Lat, 'f', 4, 64),
			"longitude": strconv.FormatFloat(at.Lon, 'f', 4, 64),
		}).
		SetResult(&body).
		Get("/v1/elevation")
	if err != nil {
		return 0, fmt.Errorf("elevation: %w", err)
	}
	if resp.IsError() {
		return 0, statusErr("elevation", resp)
	}
	if len(body.Elevation) == 0 {
		return 0, fmt.Errorf("elevation: %w", ErrNotFound)
	}
	return body.Elevation[0], nil
}
