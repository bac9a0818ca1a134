package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"campustransit.dev/transit/model"
)

type StopCSV struct {
	ID           string  `csv:"stop_id"`
	Code         string  `csv:"stop_code"`
	Name         string  `csv:"stop_name"`
	Desc         string  `csv:"stop_desc"`
	Lat          float64 `csv:"stop_lat"`
	Lon          float64 `csv:"stop_lon"`
	LocationType int8    `csv:"location_type"`
}

func ParseStops(writer CatalogWriter, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stopIDs := map[string]bool{}
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if stopIDs[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		stopIDs[st.ID] = true

		// Generic nodes (3) and boarding areas (4) may omit
		// name and position. Everything else needs them.
		if st.LocationType != 3 && st.LocationType != 4 {
			if st.Name == "" {
				return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
			}
			if st.Lat == 0 || st.Lon == 0 {
				return nil, fmt.Errorf("empty stop_lat or stop_lon for stop_id '%s'", st.ID)
			}
		}

		err := writer.WriteStop(&model.Stop{
			ID:   st.ID,
			Code: st.Code,
			Name: st.Name,
			Desc: st.Desc,
			Lat:  st.Lat,
			Lon:  st.Lon,
		})
		if err != nil {
			return nil, fmt.Errorf("writing stop '%s': %w", st.ID, err)
		}
	}

	return stopIDs, nil
}
