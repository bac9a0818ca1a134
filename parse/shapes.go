package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"campustransit.dev/transit/model"
)

type ShapeCSV struct {
	ID       string  `csv:"shape_id"`
	Lat      float64 `csv:"shape_pt_lat"`
	Lon      float64 `csv:"shape_pt_lon"`
	Sequence int     `csv:"shape_pt_sequence"`
}

// Parses shapes.txt, returning the number of points written.
func ParseShapes(writer CatalogWriter, data io.Reader) (int, error) {
	n := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(sh *ShapeCSV) error {
		n++
		if sh.ID == "" {
			return fmt.Errorf("missing shape_id (row %d)", n)
		}

		err := writer.WriteShapePoint(&model.ShapePoint{
			ShapeID:  sh.ID,
			Lat:      sh.Lat,
			Lon:      sh.Lon,
			Sequence: sh.Sequence,
		})
		if err != nil {
			return errors.Wrapf(err, "writing shape point (row %d)", n)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "unmarshaling shapes csv")
	}

	return n, nil
}
