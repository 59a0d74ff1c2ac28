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

// directionsResponse is the subset of the Directions API response we read.
// Distance and duration are pointers so a leg missing either field is
// distinguishable from a zero value.
type directionsResponse struct {
	Routes []struct {
		Legs []struct {
			Distance *struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration *struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
	Status string `json:"status"`
}

func (c *httpClient) Directions(ctx context.Context, origin, destination string, mode model.TravelMode) (*Leg, error) {
	if !mode.Valid() {
		return nil, eris.Wrapf(model.ErrInvalidArgument, "gmaps: invalid travel mode %q", mode)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gmaps: directions rate limit")
	}

	params := url.Values{
		"key":         {c.apiKey},
		"origin":      {origin},
		"destination": {destination},
		"mode":        {string(mode)},
	}
	reqURL := c.baseURL + directionsPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: build directions request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: directions request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(model.ErrDataSource, "gmaps: directions returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: read directions response")
	}

	var dir directionsResponse
	if err := json.Unmarshal(body, &dir); err != nil || len(dir.Routes) == 0 || len(dir.Routes[0].Legs) == 0 {
		zap.L().Debug("directions returned no usable route",
			zap.String("origin", origin),
			zap.String("destination", destination),
			zap.String("mode", string(mode)),
			zap.String("status", dir.Status))
		return nil, nil
	}

	leg := dir.Routes[0].Legs[0]
	if leg.Distance == nil || leg.Duration == nil {
		return nil, nil
	}
	return &Leg{DistanceMeters: leg.Distance.Value, DurationSeconds: leg.Duration.Value}, nil
}
