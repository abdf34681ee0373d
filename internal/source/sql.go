package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/appbaseio/world-search/model/country"
	"github.com/appbaseio/world-search/plugins/backfill"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite" // SQLite driver
)

const logTag = "[source]"

const countryColumns = `Code, Name, Continent, Region, SurfaceArea, IndepYear, Population,
	LifeExpectancy, GNP, GNPOld, LocalName, GovernmentForm, HeadOfState, Capital, Code2`

// SQLSource reads countries with their cities and languages from the world schema.
type SQLSource struct {
	db *sql.DB
}

// Open connects to the database named by driver and dsn.
func Open(driver, dsn string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &SQLSource{db: db}, nil
}

// New wraps an already opened database.
func New(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

// Close closes the database connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Stream implements backfill.Source. Countries are read in Code order, one page
// at a time, and each page is completed with its cities and languages before
// being handed to fn.
func (s *SQLSource) Stream(ctx context.Context, batchSize int, fn func([]backfill.Record) error) error {
	if batchSize <= 0 {
		batchSize = backfill.DefaultBatchSize
	}

	after := ""
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		countries, err := s.countries(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(countries) == 0 {
			log.Debugln(logTag, ": streamed", pages, "pages")
			return nil
		}
		if err := s.loadRelations(ctx, countries); err != nil {
			return err
		}

		records := make([]backfill.Record, len(countries))
		for i, c := range countries {
			records[i] = c
		}
		pages++
		if err := fn(records); err != nil {
			return err
		}
		if len(countries) < batchSize {
			log.Debugln(logTag, ": streamed", pages, "pages")
			return nil
		}
		after = countries[len(countries)-1].Code
	}
}

// Count returns the number of countries.
func (s *SQLSource) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM country`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting countries: %w", err)
	}
	return n, nil
}

func (s *SQLSource) countries(ctx context.Context, after string, limit int) ([]*country.Country, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+countryColumns+`
		FROM country
		WHERE Code > ?
		ORDER BY Code
		LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("querying countries: %w", err)
	}
	defer rows.Close()

	var countries []*country.Country
	for rows.Next() {
		c := &country.Country{}
		var (
			indepYear, capital     sql.NullInt64
			lifeExpectancy, gnpOld sql.NullFloat64
			headOfState            sql.NullString
		)
		if err := rows.Scan(
			&c.Code, &c.Name, &c.Continent, &c.Region, &c.SurfaceArea, &indepYear, &c.Population,
			&lifeExpectancy, &c.GNP, &gnpOld, &c.LocalName, &c.GovernmentForm, &headOfState, &capital, &c.Code2,
		); err != nil {
			return nil, fmt.Errorf("scanning country: %w", err)
		}
		if indepYear.Valid {
			v := int(indepYear.Int64)
			c.IndepYear = &v
		}
		if capital.Valid {
			v := int(capital.Int64)
			c.Capital = &v
		}
		if lifeExpectancy.Valid {
			c.LifeExpectancy = &lifeExpectancy.Float64
		}
		if gnpOld.Valid {
			c.GNPOld = &gnpOld.Float64
		}
		if headOfState.Valid {
			c.HeadOfState = &headOfState.String
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating countries: %w", err)
	}
	return countries, nil
}

func (s *SQLSource) loadRelations(ctx context.Context, countries []*country.Country) error {
	byCode := make(map[string]*country.Country, len(countries))
	args := make([]interface{}, len(countries))
	for i, c := range countries {
		byCode[c.Code] = c
		args[i] = c.Code
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?,", len(countries)), ",") + ")"

	rows, err := s.db.QueryContext(ctx, `
		SELECT ID, Name, CountryCode, District, Population
		FROM city
		WHERE CountryCode IN `+in+`
		ORDER BY CountryCode, ID
	`, args...)
	if err != nil {
		return fmt.Errorf("querying cities: %w", err)
	}
	for rows.Next() {
		var city country.City
		if err := rows.Scan(&city.ID, &city.Name, &city.CountryCode, &city.District, &city.Population); err != nil {
			rows.Close()
			return fmt.Errorf("scanning city: %w", err)
		}
		if c, ok := byCode[city.CountryCode]; ok {
			c.Cities = append(c.Cities, city)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("iterating cities: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT CountryCode, Language, IsOfficial, Percentage
		FROM countrylanguage
		WHERE CountryCode IN `+in+`
		ORDER BY CountryCode, Language
	`, args...)
	if err != nil {
		return fmt.Errorf("querying languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			lang       country.Language
			isOfficial string
		)
		if err := rows.Scan(&lang.CountryCode, &lang.Language, &isOfficial, &lang.Percentage); err != nil {
			return fmt.Errorf("scanning language: %w", err)
		}
		lang.IsOfficial = isOfficial == "T"
		if c, ok := byCode[lang.CountryCode]; ok {
			c.Languages = append(c.Languages, lang)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating languages: %w", err)
	}
	return nil
}
