package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustransit.dev/transit/model"
)

func TestParseStops(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		stops   []*model.Stop
		err     bool
	}{
		{
			"minimal_stop",
			`
stop_id,stop_name,stop_lat,stop_lon
s,name,1.1,2.2`,
			[]*model.Stop{{ID: "s", Name: "name", Lat: 1.1, Lon: 2.2}},
			false,
		},

		{
			"all_fields_and_generic_node",
			`
location_type,stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon
0,s,code_s,Stop,desc_s,1.1,2.2
3,g,code_g,,,,
`,
			[]*model.Stop{
				{ID: "s", Code: "code_s", Name: "Stop", Desc: "desc_s", Lat: 1.1, Lon: 2.2},
				{ID: "g", Code: "code_g"},
			},
			false,
		},

		{
			"missing_name",
			`
stop_id,stop_name,stop_lat,stop_lon
s,,1.1,2.2`,
			nil,
			true,
		},

		{
			"missing_position",
			`
stop_id,stop_name,stop_lat,stop_lon
s,Stop,,`,
			nil,
			true,
		},

		{
			"non_numeric_position",
			`
stop_id,stop_name,stop_lat,stop_lon
s,Stop,north,2.2`,
			nil,
			true,
		},

		{
			"repeated_stop_id",
			`
stop_id,stop_name,stop_lat,stop_lon
s,Stop,1.1,2.2
s,Stop,1.1,2.2`,
			nil,
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := &recordingWriter{}
			stops, err := ParseStops(w, bytes.NewBufferString(tc.content))
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.stops, w.stops)
			assert.Equal(t, len(tc.stops), len(stops))
		})
	}
}
