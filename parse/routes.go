package parse

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"campustransit.dev/transit/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

// Normalizes a route color to six hex digits. Some feeds prefix a
// '#'. Blank stays blank.
func normalizeRouteColor(color string) (string, bool) {
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")
	if color == "" {
		return "", true
	}
	if len(color) != 6 {
		return "", false
	}
	if _, err := hex.DecodeString(color); err != nil {
		return "", false
	}
	return strings.ToUpper(color), true
}

func ParseRoutes(writer CatalogWriter, data io.Reader) (map[string]bool, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes: %v", err)
	}

	routes := map[string]bool{}

	for _, r := range routeCsv {
		if r.ID == "" {
			return nil, fmt.Errorf("route has no route_id")
		}
		if routes[r.ID] {
			return nil, fmt.Errorf("repeated route_id: '%s'", r.ID)
		}
		routes[r.ID] = true

		color, ok := normalizeRouteColor(r.Color)
		if !ok {
			return nil, fmt.Errorf("route_id '%s' has invalid route_color: %s", r.ID, r.Color)
		}
		textColor, ok := normalizeRouteColor(r.TextColor)
		if !ok {
			return nil, fmt.Errorf("route_id '%s' has invalid route_text_color: %s", r.ID, r.TextColor)
		}

		err := writer.WriteRoute(&model.Route{
			ID:        r.ID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Type:      r.Type,
			Color:     color,
			TextColor: textColor,
		})
		if err != nil {
			return nil, fmt.Errorf("writing route: %v", err)
		}
	}

	return routes, nil
}
