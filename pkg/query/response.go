package query

import (
	"github.com/hazyhaar/istat-census/pkg/population"
)

// NoResultsMessage is returned in place of a document when a query yields no data.
const NoResultsMessage = "OOOPS! Your query returned no results. Try rephrasing your request with more detail."

// Response is the census document answered to a population query.
type Response struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Type            string  `json:"type"`
	RequestDuration int64   `json:"requestDuration"`
	RequestTokens   int     `json:"requestTokens"`
	Data            []Datum `json:"data"`
	DataURL         string  `json:"dataURL"`
	DataSource      string  `json:"dataSource"`
	Analysis        string  `json:"analysis"`
}

// Datum is one population figure of a location.
type Datum struct {
	Name       string     `json:"name"`
	GeoID      string     `json:"geoID"`
	GroupID    string     `json:"groupID"`
	GroupLabel string     `json:"groupLabel"`
	Unit       string     `json:"unit"`
	Categories []Category `json:"categories"`
}

// Category holds the value of one statistic.
type Category struct {
	VariableID    string `json:"variableID"`
	VariableLabel string `json:"variableLabel"`
	Value         int64  `json:"value"`
}

func newResponse() *Response {
	return &Response{
		Title:       "Census Data",
		Description: "A table from census data comparing geography with a population-based statistic.",
		Type:        "object",
		Data:        []Datum{},
		DataSource:  "Istat",
	}
}

// BuildResponse maps population rows onto the response document. The geoID
// of a row is the code it was read from; rows without one take the requested
// location id at the same position.
func BuildResponse(res *population.Result) *Response {
	resp := newResponse()
	resp.DataURL = res.URL
	ids := res.Request.Locations()
	for i, r := range res.Rows {
		geoID := r.LocationCode
		if geoID == "" && i < len(ids) {
			geoID = ids[i]
		}
		resp.Data = append(resp.Data, Datum{
			Name:       r.Location,
			GeoID:      geoID,
			GroupID:    "CL_ETA1",
			GroupLabel: "Age class",
			Unit:       "individuals",
			Categories: []Category{{
				VariableID:    "TOTAL",
				VariableLabel: "Total Population",
				Value:         parsePopulation(r.Population),
			}},
		})
	}
	return resp
}

// parsePopulation reads a count the way the fetcher validated it; rows built
// elsewhere with no number count as 0.
func parsePopulation(s string) int64 {
	n, err := population.ParseCount(s)
	if err != nil {
		return 0
	}
	return n
}
