package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/config"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNoProvider = errors.New("no location provider available")
	ErrNoCities   = errors.New("no cities configured")
)

// Provider wraps the platform geolocation SDK.
type Provider interface {
	Current(ctx context.Context) (model.Coordinates, error)
}

type Geocoder interface {
	UpdateLocation(ctx context.Context, lat, lon float64) (api.PlaceRecord, error)
}

type City struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Service captures the device position and resolves it to a displayable
// place: reverse geocode through the backend, with a local nearest-city
// fallback when offline.
type Service struct {
	provider Provider
	geocoder Geocoder
	cities   []City
	log      *zap.Logger
}

func NewService(provider Provider, geocoder Geocoder, cities []config.CityConfig, log *zap.Logger) *Service {
	mapped := make([]City, 0, len(cities))
	for _, city := range cities {
		if strings.TrimSpace(city.ID) == "" || strings.TrimSpace(city.Name) == "" {
			continue
		}
		mapped = append(mapped, City{ID: city.ID, Name: city.Name, Lat: city.Lat, Lon: city.Lon})
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		provider: provider,
		geocoder: geocoder,
		cities:   mapped,
		log:      log,
	}
}

// Capture reads the current position and reverse-geocodes it. A geocode
// failure degrades to the local city table instead of failing the capture.
func (s *Service) Capture(ctx context.Context) (model.Coordinates, model.Place, error) {
	if s.provider == nil {
		return model.Coordinates{}, model.Place{}, ErrNoProvider
	}

	coords, err := s.provider.Current(ctx)
	if err != nil {
		return model.Coordinates{}, model.Place{}, fmt.Errorf("read device position: %w", err)
	}
	if err := validateCoordinates(coords.Lat, coords.Lon); err != nil {
		return model.Coordinates{}, model.Place{}, err
	}

	if s.geocoder != nil {
		record, err := s.geocoder.UpdateLocation(ctx, coords.Lat, coords.Lon)
		if err == nil {
			return coords, model.Place{CityID: record.CityID, City: record.City}, nil
		}
		s.log.Warn("reverse geocode failed, falling back to city table", zap.Error(err))
	}

	city, err := s.NearestCity(coords.Lat, coords.Lon)
	if err != nil {
		return coords, model.Place{}, err
	}
	return coords, model.Place{CityID: city.ID, City: city.Name}, nil
}

func (s *Service) NearestCity(lat, lon float64) (City, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return City{}, err
	}
	if len(s.cities) == 0 {
		return City{}, ErrNoCities
	}

	nearest := s.cities[0]
	bestDistance := haversineKM(lat, lon, nearest.Lat, nearest.Lon)
	for _, city := range s.cities[1:] {
		distance := haversineKM(lat, lon, city.Lat, city.Lon)
		if distance < bestDistance {
			bestDistance = distance
			nearest = city
		}
	}

	return nearest, nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrValidation)
	}
	return nil
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
