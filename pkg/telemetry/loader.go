package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// SummaryEntryCount is the required entry count of a summary file:
// launch, burst and landing.
const SummaryEntryCount = 3

// LoadSummary reads a SondeHub summary file: a JSON array of exactly three
// records (launch, burst, landing). Any other length is an error so a
// half-written or truncated file can never feed the visibility search.
func LoadSummary(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}

	if len(records) != SummaryEntryCount {
		return nil, fmt.Errorf("summary %s has %d entries, want %d (launch, burst, landing)",
			path, len(records), SummaryEntryCount)
	}

	for i, r := range records {
		if r.FlightSerial() == "" {
			return nil, fmt.Errorf("summary %s entry %d has no serial", path, i)
		}
		if r.Datetime.IsZero() {
			return nil, fmt.Errorf("summary %s entry %d has no timestamp", path, i)
		}
	}

	return records, nil
}

// LoadFlightLog reads a per-flight telemetry log: a JSON array of raw frames.
// Upstream logs can carry duplicate timestamps and arrive unsorted, so frames
// are deduplicated by timestamp (the later entry in file order wins) and
// sorted ascending before the Flight is built.
func LoadFlightLog(path string) (*Flight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flight log %s: %w", path, err)
	}

	var frames []Record
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("parsing flight log %s: %w", path, err)
	}

	flight, err := buildFlight(frames)
	if err != nil {
		return nil, fmt.Errorf("flight log %s: %w", path, err)
	}
	return flight, nil
}

// LoadAmateurArchive reads an amateur archive dump: a JSON object keyed by
// payload callsign, each value an object keyed by datetime string. Amateur
// frames identify themselves by payload_callsign, so the loader copies that
// into Serial. Callsigns whose frames cannot form a flight are logged and
// skipped. Flights come back sorted by callsign for deterministic output.
func LoadAmateurArchive(path string) ([]*Flight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading amateur archive %s: %w", path, err)
	}

	var byCallsign map[string]map[string]Record
	if err := json.Unmarshal(data, &byCallsign); err != nil {
		return nil, fmt.Errorf("parsing amateur archive %s: %w", path, err)
	}

	callsigns := make([]string, 0, len(byCallsign))
	for callsign := range byCallsign {
		callsigns = append(callsigns, callsign)
	}
	sort.Strings(callsigns)

	flights := make([]*Flight, 0, len(callsigns))
	for _, callsign := range callsigns {
		frames := make([]Record, 0, len(byCallsign[callsign]))
		for _, frame := range byCallsign[callsign] {
			if frame.Serial == "" {
				frame.Serial = frame.PayloadCallsign
			}
			if frame.Serial == "" {
				frame.Serial = callsign
			}
			frames = append(frames, frame)
		}

		flight, err := buildFlight(frames)
		if err != nil {
			log.Printf("Skipping callsign %s in %s: %v", callsign, path, err)
			continue
		}
		flights = append(flights, flight)
	}

	return flights, nil
}

// buildFlight turns raw frames into a Flight: dedupe by timestamp (later
// frame wins), sort ascending, take the serial from the first frame and the
// last-heard time from the final one.
func buildFlight(frames []Record) (*Flight, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames")
	}

	byTime := make(map[int64]Record, len(frames))
	for _, f := range frames {
		if f.Datetime.IsZero() {
			return nil, fmt.Errorf("frame without timestamp")
		}
		byTime[f.Datetime.UnixNano()] = f
	}

	points := make([]Record, 0, len(byTime))
	for _, f := range byTime {
		points = append(points, f)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Datetime.Before(points[j].Datetime)
	})

	serial := points[0].FlightSerial()
	if serial == "" {
		return nil, fmt.Errorf("frames carry no serial")
	}

	return &Flight{
		Serial:   serial,
		LastTime: points[len(points)-1].Datetime,
		Points:   points,
	}, nil
}

// SummaryFiles lists the summary files in a folder (folder/*.json),
// lexically sorted.
func SummaryFiles(folder string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(folder, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing summaries in %s: %w", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// FlightLogFiles lists the flight logs under a date-sharded store
// (folder/<year>/<month>/<serial>.json), lexically sorted.
func FlightLogFiles(folder string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(folder, "*", "*", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing flight logs in %s: %w", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}
