package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/policyvoice/corroborate/internal/call"
	"github.com/policyvoice/corroborate/internal/geo"
	"github.com/policyvoice/corroborate/internal/model"
)

// number decodes upstream numerics that arrive as JSON numbers, quoted
// strings or null. Census and Socrata quote everything.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// censusTable is the Census API's array-of-arrays response: a header row
// followed by data rows
type censusTable [][]string

// row returns the first data row keyed by header
func (t censusTable) row() (map[string]string, error) {
	if len(t) < 2 {
		return nil, fmt.Errorf("census response has no data rows")
	}
	header, values := t[0], t[1]
	out := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(values) {
			out[h] = values[i]
		}
	}
	return out, nil
}

// censusFloat parses a Census estimate. Negative sentinels such as
// -666666666 mean the estimate is unavailable and read as 0.
func censusFloat(row map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(row[key], 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// acsYear is the ACS 5-year release queried by the Census-backed adapters
const acsYear = "2022"

// queryACS fetches ACS 5-year variables for a ZCTA when the geography has a
// valid ZIP, otherwise for the state
func queryACS(ctx context.Context, e Endpoint, st geo.State, g model.Geography, vars []string) (map[string]string, string, error) {
	q := url.Values{}
	q.Set("get", strings.Join(append([]string{"NAME"}, vars...), ","))

	area := st.Name
	if geo.ValidZIP(g.ZIP) {
		q.Set("for", "zip code tabulation area:"+g.ZIP)
		area = "ZIP " + g.ZIP
	} else {
		q.Set("for", "state:"+st.FIPS)
	}
	if e.APIKey != "" {
		q.Set("key", e.APIKey)
	}

	var table censusTable
	if err := e.Caller.GetJSON(ctx, e.url(acsYear+"/acs/acs5"), q, &table); err != nil {
		return nil, "", err
	}
	row, err := table.row()
	if err != nil {
		return nil, "", &call.Failure{Reason: call.ReasonNotFound, Upstream: "census", Err: err}
	}
	return row, area, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
