package geolocation

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GooglePlatform resolves the host's position with the Google Maps
// Geolocation API, falling back on IP based lookup.
type GooglePlatform struct {
	client geolocator
}

func NewGooglePlatform(apiKey string) (*GooglePlatform, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is required")
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating maps client: %w", err)
	}
	return &GooglePlatform{client: c}, nil
}

func (g *GooglePlatform) CurrentPosition(ctx context.Context, _ Options) (models.UserPosition, error) {
	resp, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.UserPosition{}, ctxErr
		}
		return models.UserPosition{}, newPositionError(KindPositionUnavailable, err.Error())
	}

	return models.UserPosition{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
	}, nil
}
