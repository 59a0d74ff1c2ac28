package gmaps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/model"
)

// geocodeResponse is the subset of the Geocoding API response we read.
type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

func (c *httpClient) Geocode(ctx context.Context, address string) (*model.Geopoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gmaps: geocode rate limit")
	}

	params := url.Values{
		"key":     {c.apiKey},
		"address": {address},
	}
	reqURL := c.baseURL + geocodePath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: build geocode request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: geocode request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(model.ErrDataSource, "gmaps: geocode returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: read geocode response")
	}

	var geo geocodeResponse
	if err := json.Unmarshal(body, &geo); err != nil || len(geo.Results) == 0 {
		zap.L().Debug("geocode returned no usable result",
			zap.String("address", address),
			zap.String("status", geo.Status))
		return nil, nil
	}

	loc := geo.Results[0].Geometry.Location
	return &model.Geopoint{Lat: loc.Lat, Lng: loc.Lng}, nil
}
