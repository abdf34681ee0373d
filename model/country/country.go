package country

import (
	"encoding/json"
	"fmt"
)

// Country is one row of the country table along with its cities and languages.
// Its json form is the document stored in the search index.
type Country struct {
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Continent      string     `json:"continent"`
	Region         string     `json:"region"`
	SurfaceArea    float64    `json:"surface_area"`
	IndepYear      *int       `json:"indep_year"`
	Population     int64      `json:"population"`
	LifeExpectancy *float64   `json:"life_expectancy"`
	GNP            float64    `json:"gnp"`
	GNPOld         *float64   `json:"gnp_old"`
	LocalName      string     `json:"local_name"`
	GovernmentForm string     `json:"government_form"`
	HeadOfState    *string    `json:"head_of_state"`
	Capital        *int       `json:"capital"`
	Code2          string     `json:"code2"`
	Cities         []City     `json:"cities"`
	Languages      []Language `json:"languages"`
}

// City belongs to a country through CountryCode.
type City struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"-"`
	District    string `json:"district"`
	Population  int64  `json:"population"`
}

// Language spoken in a country.
type Language struct {
	CountryCode string  `json:"-"`
	Language    string  `json:"language"`
	IsOfficial  bool    `json:"is_official"`
	Percentage  float64 `json:"percentage"`
}

// Key is the document id: the country code.
func (c *Country) Key() string {
	return c.Code
}

// Body serializes the country into its document form. Empty relations are
// rendered as empty arrays rather than null.
func (c *Country) Body() (json.RawMessage, error) {
	doc := *c
	if doc.Cities == nil {
		doc.Cities = []City{}
	}
	if doc.Languages == nil {
		doc.Languages = []Language{}
	}
	raw, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("error marshalling country %q: %v", c.Code, err)
	}
	return raw, nil
}
