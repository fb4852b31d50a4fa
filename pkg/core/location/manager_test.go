package location

import (
	"context"
	"errors"
	"testing"

	"github.com/glasscore/glasscore/pkg/core/hardware"
)

type fakeSession struct {
	hardware.Session
	fix hardware.Coordinate
	err error
}

func (f *fakeSession) GetLatestLocation(ctx context.Context) (hardware.Coordinate, error) {
	return f.fix, f.err
}

type fakeGeocoder struct {
	place string
	tz    string
	err   error
	calls int
}

func (g *fakeGeocoder) Reverse(ctx context.Context, c hardware.Coordinate) (string, string, error) {
	g.calls++
	return g.place, g.tz, g.err
}

func TestManager_RefreshSkipsWorkForQueriesThatDontNeedLocation(t *testing.T) {
	geo := &fakeGeocoder{}
	sess := &fakeSession{fix: hardware.Coordinate{Lat: 1, Lng: 2}}
	m := New(func() hardware.Session { return sess }, geo)

	m.Refresh(context.Background(), "tell me a joke")
	if geo.calls != 0 {
		t.Fatalf("geocoder should not be called for a non-location query")
	}
	if m.Snapshot().FetchedAt.IsZero() == false {
		t.Fatal("location should not have been fetched")
	}
}

func TestManager_RefreshGeocodesWhenNeeded(t *testing.T) {
	geo := &fakeGeocoder{place: "Tokyo", tz: "Asia/Tokyo"}
	sess := &fakeSession{fix: hardware.Coordinate{Lat: 35.6, Lng: 139.6}}
	m := New(func() hardware.Session { return sess }, geo)

	c := m.Refresh(context.Background(), "where am I")
	if geo.calls != 1 {
		t.Fatalf("geocoder calls = %d, want 1", geo.calls)
	}
	if !c.Geocoded || c.Place != "Tokyo" {
		t.Fatalf("cache = %+v", c)
	}
}

func TestManager_RefreshToleratesHardwareFailure(t *testing.T) {
	sess := &fakeSession{err: errors.New("gps unavailable")}
	m := New(func() hardware.Session { return sess }, &fakeGeocoder{})

	c := m.Refresh(context.Background(), "where am I")
	if c.FetchedAt.IsZero() == false {
		t.Fatal("stale cache should remain the zero value after a hardware failure")
	}
}

func TestManager_TimezoneFallsBackToUTC(t *testing.T) {
	m := New(func() hardware.Session { return nil }, nil)
	if tz := m.Timezone(); tz != "UTC" {
		t.Fatalf("Timezone() = %q, want UTC", tz)
	}
	m.SetTimezone("America/Los_Angeles")
	if tz := m.Timezone(); tz != "America/Los_Angeles" {
		t.Fatalf("Timezone() = %q", tz)
	}
}

func TestManager_ToleratesNoSession(t *testing.T) {
	m := New(func() hardware.Session { return nil }, &fakeGeocoder{})
	c := m.Refresh(context.Background(), "where am I")
	if c.Geocoded {
		t.Fatal("should not geocode without a coordinate fix")
	}
}
