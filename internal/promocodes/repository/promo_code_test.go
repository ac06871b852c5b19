package repository

import (
	"testing"

	"cardetail/pkg/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestApplyUsageFilter(t *testing.T) {
	usage := model.PromoUsage{UserID: "u1", BookingID: "b1"}
	maxUsage := 50

	filter := applyUsageFilter("SAVE20", usage, &maxUsage, 2)

	assert.Equal(t, "SAVE20", filter["code"])
	assert.Equal(t, true, filter["is_active"])
	assert.Equal(t, bson.M{"$ne": "b1"}, filter["usage_history.booking_id"])
	assert.Equal(t, bson.M{"$lt": 50}, filter["current_usage"])

	expr, ok := filter["$expr"].(bson.M)
	assert.True(t, ok)
	lt, ok := expr["$lt"].(bson.A)
	assert.True(t, ok)
	assert.Equal(t, 2, lt[1])
}

func TestApplyUsageFilter_NoGlobalCap(t *testing.T) {
	filter := applyUsageFilter("SAVE20", model.PromoUsage{UserID: "u1", BookingID: "b1"}, nil, 1)

	_, hasCap := filter["current_usage"]
	assert.False(t, hasCap)
}

func TestListFilter(t *testing.T) {
	assert.Equal(t, bson.M{"is_active": true}, listFilter(true))
	assert.Equal(t, bson.M{}, listFilter(false))
}
