package kml

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

func marshalString(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := xml.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestCoordinates(t *testing.T) {
	// KML wants longitude first.
	got := Coordinates(37.4300, -89.6436, 161.0)
	want := "-89.643600,37.430000,161.000000"
	if got != want {
		t.Errorf("Coordinates() = %q, want %q", got, want)
	}
}

func TestNewPointPlacemark(t *testing.T) {
	p := NewPointPlacemark("V1854526", "2024-04-08T14:22:09Z", 37.9120, -88.6003, 289.0, true)
	out := marshalString(t, p)

	for _, want := range []string{
		"<name>V1854526</name>",
		"<description>2024-04-08T14:22:09Z</description>",
		"<scale>1</scale>",
		"<href>" + DefaultIconHref + "</href>",
		"<altitudeMode>absolute</altitudeMode>",
		"<coordinates>-88.600300,37.912000,289.000000</coordinates>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("point placemark missing %s in:\n%s", want, out)
		}
	}

	clamped := NewPointPlacemark("V1854526", "", 37.9120, -88.6003, 289.0, false)
	out = marshalString(t, clamped)
	if strings.Contains(out, "altitudeMode") {
		t.Errorf("clamped placemark has altitudeMode:\n%s", out)
	}
}

func TestNewTrackPlacemark(t *testing.T) {
	path := []geodesy.Position{
		{Latitude: 37.51, Longitude: -89.44, Altitude: 312.0},
		{Latitude: 37.82, Longitude: -88.96, Altitude: 33251.0},
		{Latitude: 37.91, Longitude: -88.60, Altitude: 289.0},
	}

	p := NewTrackPlacemark("V1854526", path, DefaultTrackOptions())
	out := marshalString(t, p)

	for _, want := range []string{
		"<color>ff03bafc</color>",
		"<width>2</width>",
		"<color>8003bafc</color>",
		"<fill>1</fill>",
		"<outline>1</outline>",
		"<extrude>1</extrude>",
		"<altitudeMode>absolute</altitudeMode>",
		"-89.440000,37.510000,312.000000 -88.960000,37.820000,33251.000000 -88.600000,37.910000,289.000000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("track placemark missing %s in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "tessellate") {
		t.Errorf("absolute track has tessellate:\n%s", out)
	}

	opts := DefaultTrackOptions()
	opts.Absolute = false
	opts.Extrude = false
	flat := marshalString(t, NewTrackPlacemark("V1854526", path, opts))

	if !strings.Contains(flat, "<tessellate>1</tessellate>") {
		t.Errorf("ground track missing tessellate:\n%s", flat)
	}
	for _, reject := range []string{"extrude", "altitudeMode", "PolyStyle"} {
		if strings.Contains(flat, reject) {
			t.Errorf("ground track has %s:\n%s", reject, flat)
		}
	}
}

func testFlight() *telemetry.Flight {
	return &telemetry.Flight{
		Serial:   "V1854526",
		LastTime: time.Date(2024, 4, 8, 14, 22, 9, 0, time.UTC),
		Points: []telemetry.Record{
			{Datetime: time.Date(2024, 4, 8, 12, 5, 3, 0, time.UTC), Lat: 37.51, Lon: -89.44, Alt: 312.0},
			{Datetime: time.Date(2024, 4, 8, 13, 41, 40, 0, time.UTC), Lat: 37.82, Lon: -88.96, Alt: 33251.0},
			{Datetime: time.Date(2024, 4, 8, 14, 22, 9, 0, time.UTC), Lat: 37.91, Lon: -88.60, Alt: 289.0},
		},
	}
}

func TestFlightFolder(t *testing.T) {
	f := testFlight()

	folder := FlightFolder(f, DefaultTrackOptions())
	if folder.Name != "V1854526" {
		t.Errorf("folder name = %q, want serial", folder.Name)
	}
	if len(folder.Placemarks) != 2 {
		t.Fatalf("got %d placemarks, want point + track", len(folder.Placemarks))
	}
	if folder.Placemarks[0].Point == nil {
		t.Error("first placemark is not a point")
	}
	if folder.Placemarks[0].Description != "2024-04-08T14:22:09Z" {
		t.Errorf("point description = %q, want last-heard time", folder.Placemarks[0].Description)
	}
	if folder.Placemarks[1].LineString == nil {
		t.Error("second placemark is not a track")
	}

	opts := DefaultTrackOptions()
	opts.LastOnly = true
	folder = FlightFolder(f, opts)
	if len(folder.Placemarks) != 1 {
		t.Errorf("LastOnly folder has %d placemarks, want 1", len(folder.Placemarks))
	}

	single := &telemetry.Flight{
		Serial:   "W2040100",
		LastTime: f.LastTime,
		Points:   f.Points[:1],
	}
	folder = FlightFolder(single, DefaultTrackOptions())
	if len(folder.Placemarks) != 1 {
		t.Errorf("single-point folder has %d placemarks, want 1", len(folder.Placemarks))
	}
}

func TestWriteDocument(t *testing.T) {
	doc := FlightsDocument([]*telemetry.Flight{testFlight()}, DefaultTrackOptions())

	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, xml.Header) {
		t.Error("output missing XML header")
	}
	if !strings.Contains(out, `xmlns="`+Namespace+`"`) {
		t.Error("output missing KML namespace")
	}

	var parsed KML
	if err := xml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output does not parse back: %v", err)
	}
	if len(parsed.Document.Folders) != 1 {
		t.Fatalf("parsed %d folders, want 1", len(parsed.Document.Folders))
	}
	if parsed.Document.Folders[0].Name != "V1854526" {
		t.Errorf("parsed folder name = %q", parsed.Document.Folders[0].Name)
	}
}

func TestFlightLogsToKML(t *testing.T) {
	store := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(store, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(filepath.Join("2024", "04", "V1854526.json"), `[
  {"serial": "V1854526", "datetime": "2024-04-08T12:05:03Z", "lat": 37.51, "lon": -89.44, "alt": 312.0},
  {"serial": "V1854526", "datetime": "2024-04-08T14:22:09Z", "lat": 37.91, "lon": -88.60, "alt": 289.0}
]`)
	write(filepath.Join("2024", "04", "T0112233.json"), `[
  {"serial": "T0112233", "datetime": "2024-04-08T15:00:00Z", "lat": 38.00, "lon": -89.00, "alt": 150.0}
]`)
	write(filepath.Join("2024", "05", "corrupt.json"), `{not json`)

	paths, err := telemetry.FlightLogFiles(store)
	if err != nil {
		t.Fatalf("FlightLogFiles() error = %v", err)
	}

	var buf bytes.Buffer
	count, err := FlightLogsToKML(paths, &buf, DefaultTrackOptions())
	if err != nil {
		t.Fatalf("FlightLogsToKML() error = %v", err)
	}
	if count != 2 {
		t.Errorf("wrote %d flights, want 2 (corrupt log skipped)", count)
	}

	out := buf.String()
	if !strings.Contains(out, "<name>T0112233</name>") || !strings.Contains(out, "<name>V1854526</name>") {
		t.Errorf("output missing flight folders:\n%s", out)
	}

	var parsed KML
	if err := xml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if len(parsed.Document.Folders) != 2 {
		t.Errorf("parsed %d folders, want 2", len(parsed.Document.Folders))
	}
}
