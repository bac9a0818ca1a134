package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"campustransit.dev/transit/model"
)

// Receives the records of a static archive as they're parsed.
type CatalogWriter interface {
	WriteAgency(agency *model.Agency) error
	WriteRoute(route *model.Route) error
	WriteStop(stop *model.Stop) error
	WriteTrip(trip *model.Trip) error
	WriteStopTime(stopTime *model.StopTime) error
	WriteShapePoint(point *model.ShapePoint) error
	Close() error
}

// Summary of a parsed archive.
type Metadata struct {
	// From agency.txt. Empty if the archive has none.
	Timezone string

	NumRoutes      int
	NumStops       int
	NumTrips       int
	NumStopTimes   int
	NumShapePoints int
}

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

func ParseStatic(writer CatalogWriter, buf []byte) (*Metadata, error) {
	// These are the files we load for static dumps.
	file := map[string]io.ReadCloser{
		"agency.txt":     nil,
		"routes.txt":     nil,
		"stops.txt":      nil,
		"trips.txt":      nil,
		"stop_times.txt": nil,
		"shapes.txt":     nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if rc, found := file[fName]; !found || rc != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	for _, required := range []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	metadata := &Metadata{}

	if file["agency.txt"] != nil {
		metadata.Timezone, err = ParseAgency(writer, file["agency.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing agency.txt: %w", err)
		}
	}

	routes, err := ParseRoutes(writer, file["routes.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}
	metadata.NumRoutes = len(routes)

	stops, err := ParseStops(writer, file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}
	metadata.NumStops = len(stops)

	trips, err := ParseTrips(writer, file["trips.txt"], routes)
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}
	metadata.NumTrips = len(trips)

	metadata.NumStopTimes, err = ParseStopTimes(writer, file["stop_times.txt"], trips, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}

	if file["shapes.txt"] != nil {
		metadata.NumShapePoints, err = ParseShapes(writer, file["shapes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing shapes.txt: %w", err)
		}
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("closing catalog writer: %w", err)
	}

	return metadata, nil
}
