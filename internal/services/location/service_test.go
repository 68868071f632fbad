package location

import (
	"context"
	"errors"
	"testing"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/config"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
)

type fakeProvider struct {
	coords model.Coordinates
	err    error
}

func (f *fakeProvider) Current(context.Context) (model.Coordinates, error) {
	return f.coords, f.err
}

type fakeGeocoder struct {
	place api.PlaceRecord
	err   error
	calls int
}

func (f *fakeGeocoder) UpdateLocation(_ context.Context, lat, lon float64) (api.PlaceRecord, error) {
	f.calls++
	if f.err != nil {
		return api.PlaceRecord{}, f.err
	}
	return f.place, nil
}

func testCities() []config.CityConfig {
	return []config.CityConfig{
		{ID: "yerevan", Name: "Yerevan", Lat: 40.1792, Lon: 44.4991},
		{ID: "gyumri", Name: "Gyumri", Lat: 40.7894, Lon: 43.8475},
	}
}

func TestCaptureUsesBackendGeocode(t *testing.T) {
	provider := &fakeProvider{coords: model.Coordinates{Lat: 40.18, Lon: 44.51}}
	geocoder := &fakeGeocoder{place: api.PlaceRecord{CityID: "yerevan", City: "Yerevan, Armenia"}}
	service := NewService(provider, geocoder, testCities(), nil)

	coords, place, err := service.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if coords != provider.coords {
		t.Fatalf("unexpected coords: %+v", coords)
	}
	if place.City != "Yerevan, Armenia" || geocoder.calls != 1 {
		t.Fatalf("unexpected place: %+v (calls %d)", place, geocoder.calls)
	}
}

func TestCaptureFallsBackToCityTable(t *testing.T) {
	provider := &fakeProvider{coords: model.Coordinates{Lat: 40.80, Lon: 43.85}}
	geocoder := &fakeGeocoder{err: errors.New("offline")}
	service := NewService(provider, geocoder, testCities(), nil)

	_, place, err := service.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if place.CityID != "gyumri" {
		t.Fatalf("expected nearest-city fallback to gyumri, got %+v", place)
	}
}

func TestCaptureRejectsBadCoordinates(t *testing.T) {
	provider := &fakeProvider{coords: model.Coordinates{Lat: 120, Lon: 0}}
	service := NewService(provider, nil, testCities(), nil)

	if _, _, err := service.Capture(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCaptureWithoutProvider(t *testing.T) {
	service := NewService(nil, nil, testCities(), nil)
	if _, _, err := service.Capture(context.Background()); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestNearestCityRequiresTable(t *testing.T) {
	service := NewService(&fakeProvider{}, nil, nil, nil)
	if _, err := service.NearestCity(40, 44); !errors.Is(err, ErrNoCities) {
		t.Fatalf("expected ErrNoCities, got %v", err)
	}
}
