package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"campustransit.dev/transit/model"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

// Parses agency.txt and returns the feed's timezone.
func ParseAgency(writer CatalogWriter, data io.Reader) (string, error) {
	agencyCsv := []*AgencyCSV{}
	if err := gocsv.Unmarshal(data, &agencyCsv); err != nil {
		return "", fmt.Errorf("unmarshaling agency csv: %w", err)
	}

	if len(agencyCsv) == 0 {
		return "", nil
	}

	// "If multiple agencies are specified in the dataset, each
	// must have the same agency_timezone."
	agencyTz := map[string]bool{}
	for _, a := range agencyCsv {
		agencyTz[a.Timezone] = true
	}
	if len(agencyTz) != 1 {
		return "", fmt.Errorf("multiple agency_timezone")
	}

	tz := agencyCsv[0].Timezone
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return "", fmt.Errorf("agency_timezone '%s' is invalid: %w", tz, err)
		}
	}

	seen := map[string]bool{}
	for _, a := range agencyCsv {
		if seen[a.ID] {
			return "", fmt.Errorf("duplicated agency_id: '%s'", a.ID)
		}
		seen[a.ID] = true

		err := writer.WriteAgency(&model.Agency{
			ID:       a.ID,
			Name:     a.Name,
			URL:      a.URL,
			Timezone: tz,
		})
		if err != nil {
			return "", fmt.Errorf("writing agency: %w", err)
		}
	}

	return tz, nil
}
