package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// mongod only accepts a restricted operator set in a partial index filter
// ($eq, $exists, $gt/$gte/$lt/$lte, $type, $and, $or, $in — notably not
// $ne), so the order_id uniqueness guard has to enumerate the active
// statuses instead of excluding reversed. Creating the index with an
// unsupported operator fails CreateMany and aborts startup.
func TestOrderIDIndexUsesSupportedPartialFilter(t *testing.T) {
	var found bool
	for _, model := range eventIndexModels() {
		keys, ok := model.Keys.(bson.D)
		require.True(t, ok)
		if len(keys) != 1 || keys[0].Key != "order_id" {
			continue
		}
		found = true

		require.NotNil(t, model.Options)
		require.NotNil(t, model.Options.Unique)
		assert.True(t, *model.Options.Unique)

		filter, ok := model.Options.PartialFilterExpression.(bson.D)
		require.True(t, ok, "partial filter must be a bson.D")
		require.Len(t, filter, 1)
		assert.Equal(t, "status", filter[0].Key)

		clause, ok := filter[0].Value.(bson.D)
		require.True(t, ok)
		require.Len(t, clause, 1)
		assert.Equal(t, "$in", clause[0].Key)

		statuses, ok := clause[0].Value.(bson.A)
		require.True(t, ok)
		assert.ElementsMatch(t, bson.A{"calculated", "approved", "paid", "fraudulent"}, statuses)
		assert.NotContains(t, statuses, "reversed")
	}
	require.True(t, found, "no unique order_id index defined")
}

func TestMigrationVersionsAreStrictlyIncreasing(t *testing.T) {
	migrations := getMigrations()
	require.NotEmpty(t, migrations)

	previous := 0
	for _, migration := range migrations {
		assert.Greater(t, migration.Version, previous, migration.Description)
		previous = migration.Version
	}
}
