package mongo

import (
	"testing"

	bookingsrepo "cardetail/internal/bookings/repository"
	catalogrepo "cardetail/internal/catalog/repository"
	promorepo "cardetail/internal/promocodes/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollections_CoverRepositories(t *testing.T) {
	defs := Collections()

	for _, name := range []string{
		bookingsrepo.CollectionName,
		bookingsrepo.ReservationCollectionName,
		promorepo.CollectionName,
		catalogrepo.CollectionName,
	} {
		def, ok := defs[name]
		require.True(t, ok, name)
		assert.NotEmpty(t, def.Indexes, name)
		assert.Contains(t, def.Validator, "$jsonSchema", name)
	}
}

func TestSlotReservationsExpire(t *testing.T) {
	ttl := SlotReservationsIndexes[1]

	require.NotNil(t, ttl.Options)
	require.NotNil(t, ttl.Options.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *ttl.Options.ExpireAfterSeconds)
}

func TestUniqueIndexes(t *testing.T) {
	code := PromoCodesIndexes[0].Options
	require.NotNil(t, code.Unique)
	assert.True(t, *code.Unique)

	name := ServicesIndexes[0].Options
	require.NotNil(t, name.Unique)
	assert.True(t, *name.Unique)
	require.NotNil(t, name.Collation)
	assert.Equal(t, 2, name.Collation.Strength)
}
