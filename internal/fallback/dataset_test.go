package fallback

import (
	"sort"
	"testing"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	ds, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "IN-PB", ds.Region())
}

func TestLookup_LudhianaVillages(t *testing.T) {
	ds := MustLoad()

	got := normalizer.Names(ds.Lookup("PB", "Ludhiana"))
	assert.ElementsMatch(t, []string{"Dehlon", "Dakha", "Gill", "Mullanpur", "Jodhan", "Sahnewal"}, got)
	assert.True(t, sort.StringsAreSorted(got))

	// không phân biệt hoa thường ở cityName và stateCode
	assert.Len(t, ds.Lookup("pb", "LUDHIANA"), 6)
}

func TestLookup_NoCityLevelEntry(t *testing.T) {
	ds := MustLoad()
	assert.Empty(t, ds.Lookup("PB", ""))
	assert.Empty(t, ds.Lookup("HR", "Ambala"))
}

func TestStates_OnlyForRegionCountry(t *testing.T) {
	ds := MustLoad()

	states := ds.States("IN")
	require.NotEmpty(t, states)
	assert.Equal(t, models.LocationOption{Code: "AP", Name: "Andhra Pradesh"}, states[0])
	assert.Len(t, ds.States("India"), len(states))
	assert.Empty(t, ds.States("US"))
}

func TestFor_ByLevel(t *testing.T) {
	ds := MustLoad()
	sel := models.Selection{Country: "IN", State: "PB", City: "Ludhiana"}

	assert.Empty(t, ds.For(models.LevelCountry, sel))
	assert.NotEmpty(t, ds.For(models.LevelState, sel))
	assert.Empty(t, ds.For(models.LevelCity, sel))
	assert.Len(t, ds.For(models.LevelVillage, sel), 6)

	sel.Country = "US"
	assert.Empty(t, ds.For(models.LevelVillage, sel))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	ds := MustLoad()
	first := ds.Lookup("PB", "Ludhiana")
	first[0].Name = "mutated"
	assert.NotEqual(t, "mutated", ds.Lookup("PB", "Ludhiana")[0].Name)
}

func TestParse_InvalidKey(t *testing.T) {
	_, err := Parse([]byte("villages:\n  nokey: [A]\n"))
	assert.Error(t, err)
}

func TestRecords_Flatten(t *testing.T) {
	ds := MustLoad()
	records := ds.Records()
	require.NotEmpty(t, records)

	assert.Equal(t, Record{Level: models.LevelCountry, Code: "IN", Name: "India"}, records[0])

	counts := map[models.LocationLevel]int{}
	var ludhiana []string
	for _, r := range records {
		counts[r.Level]++
		if r.Level == models.LevelVillage && r.CityName == "Ludhiana" {
			assert.Equal(t, "PB", r.StateCode)
			ludhiana = append(ludhiana, r.Name)
		}
	}
	assert.Equal(t, 1, counts[models.LevelCountry])
	assert.Equal(t, 20, counts[models.LevelState])
	assert.Equal(t, 5, counts[models.LevelCity])
	assert.ElementsMatch(t, []string{"Dehlon", "Dakha", "Gill", "Mullanpur", "Jodhan", "Sahnewal"}, ludhiana)
}
