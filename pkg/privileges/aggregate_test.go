package privileges

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func TestAggregateSortsAndDedups(t *testing.T) {
	db := Aggregate(fixedTime, []Record{
		{Name: "jamf.computer.read", Surface: JamfProAPI, Category: "Computers"},
		{Name: "Read Computers", Surface: ClassicAPI, Category: "Computers", Endpoints: []string{"GET /computers"}},
		{Name: "Read Computers", Surface: ClassicAPI, Category: "Other", Endpoints: []string{"GET /computers/id/{id}", "GET /computers"}},
		{Name: "Create Buildings", Surface: ClassicAPI},
		{Name: "", Surface: ClassicAPI, Category: "Ghost"},
		{Name: "Bogus", Surface: "Nope"},
	}, nil)

	require.Len(t, db.Privileges, 3)
	assert.Equal(t, "Create Buildings", db.Privileges[0].Name)
	assert.Equal(t, Uncategorized, db.Privileges[0].Category)

	rc := db.Privileges[1]
	assert.Equal(t, "Read Computers", rc.Name)
	assert.Equal(t, "Computers", rc.Category, "first seen wins")
	assert.Equal(t, []string{"GET /computers", "GET /computers/id/{id}"}, rc.Endpoints)

	assert.Equal(t, JamfProAPI, db.Privileges[2].Surface)
	assert.Equal(t, fixedTime, db.Updated)
}

func TestAggregateCategorizedReplacesUncategorized(t *testing.T) {
	db := Aggregate(fixedTime, []Record{
		{Name: "Read Sites", Surface: ClassicAPI, Category: Uncategorized},
		{Name: "Read Sites", Surface: ClassicAPI, Category: "Sites"},
	}, nil)
	require.Len(t, db.Privileges, 1)
	assert.Equal(t, "Sites", db.Privileges[0].Category)
}

func TestAggregateKeysAreUnique(t *testing.T) {
	var in []Record
	for i := 0; i < 3; i++ {
		in = append(in,
			Record{Name: "Read Computers", Surface: ClassicAPI, Category: "Computers"},
			Record{Name: "Read Computers", Surface: JamfProAPI, Category: "Computers"},
		)
	}
	db := Aggregate(fixedTime, in, nil)

	seen := map[string]bool{}
	for _, r := range db.Privileges {
		require.False(t, seen[r.Key()], "duplicate key %s", r.Key())
		seen[r.Key()] = true
	}
	assert.Len(t, db.Privileges, 2)
}

func TestFilterPartitionsDatabase(t *testing.T) {
	dep := "2026-06-01"
	db := Aggregate(fixedTime, []Record{
		{Name: "Read Computers", Surface: ClassicAPI, Category: "Computers"},
		{Name: "Read Computers", Surface: JamfProAPI, Category: "Computers"},
		{Name: "Update Users", Surface: JamfProAPI, Category: "Users"},
	}, []Endpoint{
		{Surface: ClassicAPI, Path: "/computers", Operation: "GET", Privileges: []string{"Read Computers"}},
		{Surface: JamfProAPI, Path: "/v1/users", Operation: "PUT", Privileges: []string{"Update Users"}, DeprecationDate: &dep},
		{Surface: JamfProAPI, Path: "/v1/users", Operation: "PUT", Privileges: []string{"Update Users"}, DeprecationDate: &dep},
	})

	classic := db.Filter(ClassicAPI)
	pro := db.Filter(JamfProAPI)
	assert.Len(t, classic.Privileges, 1)
	assert.Len(t, pro.Privileges, 2)
	assert.Equal(t, len(db.Privileges), len(classic.Privileges)+len(pro.Privileges))
	assert.Len(t, db.Endpoints, 2)
	assert.Len(t, pro.Endpoints, 1)
	assert.Equal(t, db.Updated, pro.Updated)
}

func TestCategoriesScenario(t *testing.T) {
	db := Aggregate(fixedTime, []Record{
		{Name: "jamf.computer.read", Surface: JamfProAPI, Category: "Computers"},
		{Name: "Read Computers", Surface: ClassicAPI, Category: "Computers"},
	}, nil)

	idx := Categories(db)
	assert.Equal(t, CategoryIndex{"Computers": {"Read Computers", "jamf.computer.read"}}, idx)
}

func TestCategoriesListsEachNameOnce(t *testing.T) {
	db := Aggregate(fixedTime, []Record{
		{Name: "Read Computers", Surface: ClassicAPI, Category: "Computers"},
		{Name: "Read Computers", Surface: JamfProAPI, Category: "Inventory"},
		{Name: "Read Sites", Surface: JamfProAPI},
	}, nil)

	idx := Categories(db)
	count := map[string]int{}
	for _, names := range idx {
		for _, n := range names {
			count[n]++
		}
	}
	for name, c := range count {
		assert.Equal(t, 1, c, name)
	}
	assert.Equal(t, []string{"Read Computers"}, idx["Computers"])
	assert.NotContains(t, idx, "Inventory")
	assert.Equal(t, []string{"Read Sites"}, idx[Uncategorized])
}
