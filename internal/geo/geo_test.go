package geo

import (
	"errors"
	"testing"
)

func TestCoord3857FromString_ValidWithElevation(t *testing.T) {
	point, elev, err := Coord3857FromString("100.5,200.25,50.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", coords.X)
	}
	if coords.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", coords.Y)
	}
	if elev != 50.0 {
		t.Errorf("expected elevation=50.0, got %f", elev)
	}
}

func TestCoord3857FromString_ValidWithoutElevation(t *testing.T) {
	point, elev, err := Coord3857FromString("100.5,200.25")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", coords.X)
	}
	if coords.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", coords.Y)
	}
	if elev != 0 {
		t.Errorf("expected elevation=0, got %f", elev)
	}
}

func TestCoord3857FromString_NegativeCoordinates(t *testing.T) {
	point, elev, err := Coord3857FromString("-100.5,-200.25,-50.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != -100.5 {
		t.Errorf("expected X=-100.5, got %f", coords.X)
	}
	if coords.Y != -200.25 {
		t.Errorf("expected Y=-200.25, got %f", coords.Y)
	}
	if elev != -50.0 {
		t.Errorf("expected elevation=-50.0, got %f", elev)
	}
}

func TestCoord3857FromString_InvalidTooFewComponents(t *testing.T) {
	_, _, err := Coord3857FromString("100.5")

	if err == nil {
		t.Fatal("expected error for invalid coordinates")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCoord3857FromString_InvalidEmptyString(t *testing.T) {
	_, _, err := Coord3857FromString("")

	if err == nil {
		t.Fatal("expected error for empty string")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCoord3857FromString_InvalidLongitude(t *testing.T) {
	_, _, err := Coord3857FromString("abc,200.25")

	if err == nil {
		t.Fatal("expected error for invalid longitude")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCoord3857FromString_InvalidElevation(t *testing.T) {
	_, _, err := Coord3857FromString("100.5,200.25,invalid")

	if err == nil {
		t.Fatal("expected error for invalid elevation")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestLonLatFromString_Valid(t *testing.T) {
	ll, err := LonLatFromString("-59.6132,13.0969")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ll.Lon != -59.6132 {
		t.Errorf("expected Lon=-59.6132, got %f", ll.Lon)
	}
	if ll.Lat != 13.0969 {
		t.Errorf("expected Lat=13.0969, got %f", ll.Lat)
	}
}

func TestLonLatFromString_Whitespace(t *testing.T) {
	ll, err := LonLatFromString(" -59.6132 , 13.0969 ")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ll.Lon != -59.6132 || ll.Lat != 13.0969 {
		t.Errorf("unexpected result: %+v", ll)
	}
}

func TestLonLatFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "13.0969", "abc,13.0969", "-59.6132,xyz"} {
		_, err := LonLatFromString(input)
		if err == nil {
			t.Errorf("expected error for %q", input)
		}
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("expected ErrInvalidCoordinates for %q, got %v", input, err)
		}
	}
}

func TestCoords3857From4326_Origin(t *testing.T) {
	point, err := Coords3857From4326(0, 0)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	// At (0, 0) in 4326, the 3857 coordinates should also be (0, 0)
	if coords.X != 0 {
		t.Errorf("expected X=0 at origin, got %f", coords.X)
	}
	if coords.Y != 0 {
		t.Errorf("expected Y=0 at origin, got %f", coords.Y)
	}
}

func TestCoords3857From4326_WesternHemisphere(t *testing.T) {
	// Bridgetown sits west of Greenwich and north of the equator
	point, err := Coords3857From4326(-59.6132, 13.0969)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X >= 0 {
		t.Errorf("expected negative X for western hemisphere, got %f", coords.X)
	}
	if coords.Y <= 0 {
		t.Errorf("expected positive Y for northern hemisphere, got %f", coords.Y)
	}
}
