package mongo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/parser"
	"github.com/nlstn/go-rql/internal/schema"
)

type docItem struct {
	Name string `bson:"name"`
	Qty  int    `bson:"qty"`
}

type docAddress struct {
	City string `bson:"city"`
}

type docPerson struct {
	ID         uuid.UUID         `bson:"_id" json:"id"`
	Name       string            `bson:"name" json:"name"`
	Balance    decimal.Decimal   `bson:"balance" json:"balance"`
	Tags       []string          `bson:"tags" json:"tags"`
	Scores     []int             `bson:"scores" json:"scores"`
	Items      []docItem         `bson:"items" json:"items"`
	Address    docAddress        `bson:"addr" json:"address"`
	Attributes map[string]string `bson:"attrs" json:"attributes"`
}

func compileQuery(t *testing.T, query string) (bson.M, error) {
	t.Helper()
	s, err := schema.Analyze(docPerson{})
	require.NoError(t, err)
	m, err := parser.Parse(query)
	require.NoError(t, err)
	filter, _, err := Query(context.Background(), m, s)
	return filter, err
}

func TestQueryFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bson.M
	}{
		{"empty", ``, bson.M{}},
		{"eq", `filter=eq(name,"alice")`, bson.M{"name": bson.M{"$eq": "alice"}}},
		{"null", `filter=eq(name,null)`, bson.M{"name": bson.M{"$eq": nil}}},
		{"not", `filter=not(eq(name,"alice"))`, bson.M{"$nor": bson.A{bson.M{"name": bson.M{"$eq": "alice"}}}}},
		{"document key", `filter=eq(address.city,"Vienna")`, bson.M{"addr.city": bson.M{"$eq": "Vienna"}}},
		{"map", `filter=eq(attributes.color,"green")`, bson.M{"attrs.color": bson.M{"$eq": "green"}}},
		{
			"like",
			`filter=likeIgnoreCase(name,"a?c*")`,
			bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: `^a.c.*$`, Options: "is"}}},
		},
		{
			"in",
			`filter=in(name,"a","b")`,
			bson.M{"name": bson.M{"$in": bson.A{"a", "b"}}},
		},
		{
			"object collection",
			`filter=and(eq(items.name,"apple"),gt(items.qty,2))`,
			bson.M{"items": bson.M{"$elemMatch": bson.M{"$and": bson.A{
				bson.M{"name": bson.M{"$eq": "apple"}},
				bson.M{"qty": bson.M{"$gt": 2}},
			}}}},
		},
		{
			"scalar collection",
			`filter=eq(tags,"red")`,
			bson.M{"tags": bson.M{"$elemMatch": bson.M{"$eq": "red"}}},
		},
		{
			"scalar collection range",
			`filter=and(gt(scores,1),lt(scores,5))`,
			bson.M{"scores": bson.M{"$elemMatch": bson.M{"$gt": 1, "$lt": 5}}},
		},
		{
			"scalar collection alternatives",
			`filter=and(or(eq(tags,"red"),eq(tags,"blue")),ne(name,null))`,
			bson.M{"$and": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"tags": bson.M{"$elemMatch": bson.M{"$eq": "red"}}},
					bson.M{"tags": bson.M{"$elemMatch": bson.M{"$eq": "blue"}}},
				}},
				bson.M{"name": bson.M{"$ne": nil}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compileQuery(t, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter)
		})
	}
}

func TestQueryValues(t *testing.T) {
	filter, err := compileQuery(t, `filter=and(eq(id,"6ba7b810-9dad-11d1-80b4-00c04fd430c8"),ge(balance,10.25))`)
	require.NoError(t, err)

	and := filter["$and"].(bson.A)
	id, ok := and[0].(bson.M)["_id"].(bson.M)["$eq"].(primitive.Binary)
	require.True(t, ok)
	want := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, byte(0x04), id.Subtype)
	assert.Equal(t, want[:], id.Data)

	balance := and[1].(bson.M)["balance"].(bson.M)["$gte"]
	assert.Equal(t, "10.25", balance.(primitive.Decimal128).String())
}

func TestQueryOptions(t *testing.T) {
	s, err := schema.Analyze(docPerson{})
	require.NoError(t, err)
	m, err := parser.Parse(`option=sort(-name,+address.city),limit(20,10)`)
	require.NoError(t, err)

	_, find, err := Query(context.Background(), m, s)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "name", Value: -1}, {Key: "addr.city", Value: 1}}, find.Sort)
	require.NotNil(t, find.Skip)
	require.NotNil(t, find.Limit)
	assert.Equal(t, int64(20), *find.Skip)
	assert.Equal(t, int64(10), *find.Limit)
}

func TestQueryNegatedElementPredicate(t *testing.T) {
	m := &model.QueryModel{Filter: model.NewNot(model.Eq("tags", "red"))}
	s, err := schema.Analyze(docPerson{})
	require.NoError(t, err)

	filter, _, err := Query(context.Background(), m, s)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$nor": bson.A{bson.M{"tags": bson.M{"$elemMatch": bson.M{"$eq": "red"}}}}}, filter)
}
