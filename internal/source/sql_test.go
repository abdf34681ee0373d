package source

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/appbaseio/world-search/model/country"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `
CREATE TABLE country (
	Code TEXT PRIMARY KEY,
	Name TEXT NOT NULL,
	Continent TEXT NOT NULL,
	Region TEXT NOT NULL,
	SurfaceArea REAL NOT NULL,
	IndepYear INTEGER,
	Population INTEGER NOT NULL,
	LifeExpectancy REAL,
	GNP REAL NOT NULL,
	GNPOld REAL,
	LocalName TEXT NOT NULL,
	GovernmentForm TEXT NOT NULL,
	HeadOfState TEXT,
	Capital INTEGER,
	Code2 TEXT NOT NULL
);
CREATE TABLE city (
	ID INTEGER PRIMARY KEY,
	Name TEXT NOT NULL,
	CountryCode TEXT NOT NULL,
	District TEXT NOT NULL,
	Population INTEGER NOT NULL
);
CREATE TABLE countrylanguage (
	CountryCode TEXT NOT NULL,
	Language TEXT NOT NULL,
	IsOfficial TEXT NOT NULL,
	Percentage REAL NOT NULL,
	PRIMARY KEY (CountryCode, Language)
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a different database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO country VALUES
		('AFG','Afghanistan','Asia','Southern and Central Asia',652090,1919,22720000,45.9,5976,NULL,'Afganistan/Afqanestan','Islamic Emirate','Mohammad Omar',1,'AF'),
		('ATA','Antarctica','Antarctica','Antarctica',13120000,NULL,0,NULL,0,NULL,'–','Co-administrated',NULL,NULL,'AQ'),
		('NLD','Netherlands','Europe','Western Europe',41526,1581,15864000,78.3,371362,360478,'Nederland','Constitutional Monarchy','Beatrix',5,'NL')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO city VALUES
		(1,'Kabul','AFG','Kabol',1780000),
		(2,'Qandahar','AFG','Qandahar',237500),
		(5,'Amsterdam','NLD','Noord-Holland',731200)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO countrylanguage VALUES
		('AFG','Dari','T',32.1),
		('AFG','Pashto','T',52.4),
		('NLD','Dutch','T',95.6),
		('NLD','Fries','F',3.7)`)
	require.NoError(t, err)
	return db
}

func collect(t *testing.T, src backfill.Source, batchSize int) ([]*country.Country, []int) {
	t.Helper()
	var (
		all     []*country.Country
		batches []int
	)
	err := src.Stream(context.Background(), batchSize, func(records []backfill.Record) error {
		batches = append(batches, len(records))
		for _, r := range records {
			all = append(all, r.(*country.Country))
		}
		return nil
	})
	require.NoError(t, err)
	return all, batches
}

func TestStreamInKeyOrder(t *testing.T) {
	src := New(newTestDB(t))

	countries, batches := collect(t, src, 2)
	assert.Equal(t, []int{2, 1}, batches)
	require.Len(t, countries, 3)
	assert.Equal(t, "AFG", countries[0].Key())
	assert.Equal(t, "ATA", countries[1].Key())
	assert.Equal(t, "NLD", countries[2].Key())

	n, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestStreamLoadsRelations(t *testing.T) {
	countries, _ := collect(t, New(newTestDB(t)), 100)

	afg := countries[0]
	require.Len(t, afg.Cities, 2)
	assert.Equal(t, "Kabul", afg.Cities[0].Name)
	require.Len(t, afg.Languages, 2)
	assert.Equal(t, "Dari", afg.Languages[0].Language)
	require.NotNil(t, afg.IndepYear)
	assert.Equal(t, 1919, *afg.IndepYear)
	assert.Nil(t, afg.GNPOld)

	ata := countries[1]
	assert.Empty(t, ata.Cities)
	assert.Nil(t, ata.Capital)
	assert.Nil(t, ata.HeadOfState)

	nld := countries[2]
	require.Len(t, nld.Languages, 2)
	assert.True(t, nld.Languages[0].IsOfficial)
	assert.False(t, nld.Languages[1].IsOfficial)
}

func TestStreamExactPages(t *testing.T) {
	_, batches := collect(t, New(newTestDB(t)), 3)
	assert.Equal(t, []int{3}, batches)
}

func TestStreamIsRestartable(t *testing.T) {
	src := New(newTestDB(t))
	first, _ := collect(t, src, 2)
	second, _ := collect(t, src, 2)
	assert.Equal(t, len(first), len(second))
}

func TestStreamStopsOnCallbackError(t *testing.T) {
	src := New(newTestDB(t))
	calls := 0
	err := src.Stream(context.Background(), 1, func(records []backfill.Record) error {
		calls++
		return fmt.Errorf("stop")
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 1, calls)
}

func TestStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := New(newTestDB(t))
	calls := 0
	err := src.Stream(ctx, 1, func(records []backfill.Record) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
