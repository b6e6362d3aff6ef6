package gormsql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/parser"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

func setupPeopleDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&sqlPerson{}, &sqlItem{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	people := []sqlPerson{
		{
			Name:       "alice",
			Tags:       []string{"red", "blue"},
			Items:      []sqlItem{{Name: "apple", Qty: 1}, {Name: "pear", Qty: 5}},
			Address:    sqlAddress{City: "Vienna"},
			Attributes: map[string]string{"color": "green"},
		},
		{
			Name:       "bob",
			Tags:       []string{"red"},
			Items:      []sqlItem{{Name: "apple", Qty: 5}},
			Address:    sqlAddress{City: "Graz"},
			Attributes: map[string]string{},
		},
		{
			Name:       "carol",
			Tags:       []string{},
			Address:    sqlAddress{City: "Vienna"},
			Attributes: map[string]string{"color": "blue"},
		},
	}
	if err := db.Create(&people).Error; err != nil {
		t.Fatalf("Failed to seed database: %v", err)
	}
	return db
}

func names(people []sqlPerson) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.Name
	}
	return out
}

func TestFind(t *testing.T) {
	db := setupPeopleDB(t)
	s := personSchema(t)

	tests := []struct {
		name  string
		query string
		opts  []Option
		want  []string
	}{
		{"all", `option=sort(+name)`, nil, []string{"alice", "bob", "carol"}},
		{"co-scoped element", `filter=and(eq(items.name,"apple"),gt(items.qty,2))&option=sort(+name)`, nil, []string{"bob"}},
		{"separate elements", `filter=or(eq(items.name,"apple"),gt(items.qty,2))&option=sort(+name)`, nil, []string{"alice", "bob"}},
		{"no element", `filter=not(eq(items.name,"apple"))&option=sort(+name)`, nil, []string{"carol"}},
		{"scalar collection", `filter=eq(tags,"blue")`, nil, []string{"alice"}},
		{"embedded", `filter=eq(address.city,"Vienna")&option=sort(-name)`, nil, []string{"carol", "alice"}},
		{"map", `filter=eq(attributes.color,"green")`, nil, []string{"alice"}},
		{"like", `filter=like(name,"?o*")`, nil, []string{"bob"}},
		{"like ignore case", `filter=likeIgnoreCase(name,"AL*")`, nil, []string{"alice"}},
		{
			"batched in",
			`filter=in(name,"alice","bob","carol")&option=sort(+name)`,
			[]Option{WithCompileOptions(compile.WithBatchSize(2))},
			[]string{"alice", "bob", "carol"},
		},
		{"limit", `option=sort(-name),limit(1,1)`, nil, []string{"bob"}},
		{"sort by map key", `filter=ne(attributes.color,null)&option=sort(+attributes.color)`, nil, []string{"carol", "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parser.Parse(tt.query)
			require.NoError(t, err)
			rows, next, err := Find[sqlPerson](context.Background(), db, m, s, tt.opts...)
			require.NoError(t, err)
			assert.Nil(t, next)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestFindCursorPages(t *testing.T) {
	db := setupPeopleDB(t)
	s := personSchema(t)

	m, err := parser.Parse(`option=sort(+name),cursor(2)`)
	require.NoError(t, err)
	rows, next, err := Find[sqlPerson](context.Background(), db, m, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names(rows))
	require.NotNil(t, next)

	m.Options.Cursor = &model.Cursor{Token: next, Limit: 2}
	rows, next, err = Find[sqlPerson](context.Background(), db, m, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names(rows))
	assert.Nil(t, next)
}

func TestFindRejectsUnknownField(t *testing.T) {
	db := setupPeopleDB(t)
	m, err := parser.Parse(`filter=eq(nope,1)`)
	require.NoError(t, err)

	_, _, err = Find[sqlPerson](context.Background(), db, m, personSchema(t))
	assert.ErrorIs(t, err, rqlerrors.ErrNoSuchField)
}

func TestApplyDryRun(t *testing.T) {
	db := setupPeopleDB(t)
	m, err := parser.Parse(`filter=eq(name,"bob")&option=sort(-name,+address.city),limit(10,5)`)
	require.NoError(t, err)

	tx, err := Apply(context.Background(), db.Session(&gorm.Session{DryRun: true}), m, personSchema(t))
	require.NoError(t, err)
	var rows []sqlPerson
	stmt := tx.Find(&rows).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `WHERE "people"."name" = ?`)
	assert.Contains(t, sql, `ORDER BY "people"."name" DESC, "people"."addr_city" ASC`)
	assert.Contains(t, sql, "LIMIT 5")
	assert.Contains(t, sql, "OFFSET 10")
	assert.Equal(t, []any{"bob"}, stmt.Vars[:1])
}
