// Package kml renders sonde flights as Google Earth KML documents: one
// folder per flight holding a last-position placemark and an extruded
// altitude track.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
	"github.com/unklstewy/sonde-scope/pkg/telemetry"
)

const (
	// Namespace is the OGC KML 2.2 namespace.
	Namespace = "http://www.opengis.net/kml/2.2"

	// DefaultIconHref is the placemark icon used for sonde positions.
	DefaultIconHref = "https://maps.google.com/mapfiles/kml/shapes/placemark_circle.png"

	// DefaultIconScale is the placemark icon scale.
	DefaultIconScale = 1.0

	// DefaultTrackColor is the flight path color in KML aabbggrr order
	// (opaque SondeHub orange).
	DefaultTrackColor = "ff03bafc"

	// DefaultPolyColor is the extrusion curtain color (half-transparent
	// SondeHub orange).
	DefaultPolyColor = "8003bafc"

	// DefaultTrackWidth is the flight path line width in pixels.
	DefaultTrackWidth = 2.0
)

// KML is the document root.
type KML struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document Document `xml:"Document"`
}

// Document holds the per-flight folders.
type Document struct {
	Name    string   `xml:"name,omitempty"`
	Folders []Folder `xml:"Folder"`
}

// Folder groups the placemarks of one flight, named by serial.
type Folder struct {
	Name       string      `xml:"name"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Placemark is either a point (Point set) or a track (LineString set).
type Placemark struct {
	Name        string      `xml:"name,omitempty"`
	Description string      `xml:"description,omitempty"`
	Style       *Style      `xml:"Style,omitempty"`
	Point       *Point      `xml:"Point,omitempty"`
	LineString  *LineString `xml:"LineString,omitempty"`
}

// Style carries the sub-styles a placemark uses.
type Style struct {
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
	PolyStyle *PolyStyle `xml:"PolyStyle,omitempty"`
}

// IconStyle sizes and selects the point icon.
type IconStyle struct {
	Scale float64 `xml:"scale"`
	Icon  Icon    `xml:"Icon"`
}

// Icon references the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LineStyle colors the track line. Color is aabbggrr hex.
type LineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

// PolyStyle colors the extrusion curtain between track and ground.
type PolyStyle struct {
	Color   string `xml:"color"`
	Fill    int    `xml:"fill"`
	Outline int    `xml:"outline"`
}

// Point is a single position. AltitudeMode "absolute" renders at true
// altitude; empty means clamped to ground.
type Point struct {
	AltitudeMode string `xml:"altitudeMode,omitempty"`
	Coordinates  string `xml:"coordinates"`
}

// LineString is a multi-position path. In absolute mode the path renders at
// true altitude with an extrusion curtain; otherwise it tessellates along
// the ground.
type LineString struct {
	Extrude      int    `xml:"extrude,omitempty"`
	Tessellate   int    `xml:"tessellate,omitempty"`
	AltitudeMode string `xml:"altitudeMode,omitempty"`
	Coordinates  string `xml:"coordinates"`
}

// TrackOptions controls how flights render.
type TrackOptions struct {
	// Color is the track line color, aabbggrr hex
	Color string

	// Width is the track line width in pixels
	Width float64

	// PolyColor is the extrusion curtain color, aabbggrr hex
	PolyColor string

	// Absolute renders positions at true altitude instead of clamped to
	// ground
	Absolute bool

	// Extrude fills the curtain between the track and the ground
	Extrude bool

	// LastOnly drops the track line, leaving only the last-position
	// placemark
	LastOnly bool
}

// DefaultTrackOptions renders absolute-altitude extruded tracks in the
// SondeHub colors.
func DefaultTrackOptions() TrackOptions {
	return TrackOptions{
		Color:     DefaultTrackColor,
		Width:     DefaultTrackWidth,
		PolyColor: DefaultPolyColor,
		Absolute:  true,
		Extrude:   true,
	}
}

// Coordinates formats a single KML coordinate tuple. KML wants
// longitude,latitude,altitude with no spaces.
func Coordinates(lat, lon, alt float64) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f", lon, lat, alt)
}

// NewPointPlacemark builds a point placemark with the default circle icon.
func NewPointPlacemark(name, description string, lat, lon, alt float64, absolute bool) Placemark {
	p := Placemark{
		Name:        name,
		Description: description,
		Style: &Style{
			IconStyle: &IconStyle{
				Scale: DefaultIconScale,
				Icon:  Icon{Href: DefaultIconHref},
			},
		},
		Point: &Point{
			Coordinates: Coordinates(lat, lon, alt),
		},
	}
	if absolute {
		p.Point.AltitudeMode = "absolute"
	}
	return p
}

// NewTrackPlacemark builds a track placemark from a flight path.
func NewTrackPlacemark(name string, path []geodesy.Position, opts TrackOptions) Placemark {
	coords := make([]string, len(path))
	for i, pos := range path {
		coords[i] = Coordinates(pos.Latitude, pos.Longitude, pos.Altitude)
	}

	style := &Style{
		LineStyle: &LineStyle{Color: opts.Color, Width: opts.Width},
	}
	if opts.Extrude {
		style.PolyStyle = &PolyStyle{Color: opts.PolyColor, Fill: 1, Outline: 1}
	}

	line := &LineString{Coordinates: strings.Join(coords, " ")}
	if opts.Absolute {
		line.Extrude = 1
		line.AltitudeMode = "absolute"
	} else {
		line.Tessellate = 1
	}

	return Placemark{
		Name:       name,
		Style:      style,
		LineString: line,
	}
}

// FlightFolder renders one flight: a placemark at the last heard position
// (described by its timestamp) and, unless LastOnly is set, the full track.
// Tracks need at least two points; shorter flights get the placemark alone.
func FlightFolder(f *telemetry.Flight, opts TrackOptions) Folder {
	last := f.LastPoint()
	folder := Folder{
		Name: f.Serial,
		Placemarks: []Placemark{
			NewPointPlacemark(f.Serial, f.LastTime.Format(time.RFC3339),
				last.Lat, last.Lon, last.Alt, opts.Absolute),
		},
	}

	if !opts.LastOnly && len(f.Points) >= 2 {
		folder.Placemarks = append(folder.Placemarks,
			NewTrackPlacemark(f.Serial, f.Path(), opts))
	}
	return folder
}

// NewDocument wraps folders in a namespaced KML root.
func NewDocument(folders ...Folder) KML {
	return KML{
		Xmlns:    Namespace,
		Document: Document{Folders: folders},
	}
}

// FlightsDocument renders a set of flights into one document, preserving
// input order.
func FlightsDocument(flights []*telemetry.Flight, opts TrackOptions) KML {
	folders := make([]Folder, 0, len(flights))
	for _, f := range flights {
		folders = append(folders, FlightFolder(f, opts))
	}
	return NewDocument(folders...)
}

// WriteDocument writes the XML header and the indented document.
func WriteDocument(w io.Writer, doc KML) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding kml: %w", err)
	}
	return enc.Close()
}

// FlightLogsToKML renders the flight logs at paths into a single KML
// document on w. Unreadable logs are logged and skipped so one corrupt
// file cannot sink a whole export. Returns the number of flights written.
func FlightLogsToKML(paths []string, w io.Writer, opts TrackOptions) (int, error) {
	folders := make([]Folder, 0, len(paths))
	for _, p := range paths {
		flight, err := telemetry.LoadFlightLog(p)
		if err != nil {
			log.Printf("Skipping %s: %v", p, err)
			continue
		}
		folders = append(folders, FlightFolder(flight, opts))
	}

	if err := WriteDocument(w, NewDocument(folders...)); err != nil {
		return 0, err
	}
	return len(folders), nil
}
