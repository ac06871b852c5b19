package validators

import "go.mongodb.org/mongo-driver/bson"

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"category",
			"base_price",
			"duration",
			"is_active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"slug": bson.M{
				"bsonType": "string",
				"pattern":  "^([a-z0-9]+(-[a-z0-9]+)*)?$",
			},

			"category": bson.M{
				"enum": []string{"exterior", "interior", "full-detail", "protection", "add-on"},
			},

			"base_price": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"vehicle_prices": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": number,
					"minimum":  0,
				},
			},

			"seasonal_adjustments": bson.M{
				"bsonType": "array",
				"maxItems": 12,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"months", "percent"},
				},
			},

			"duration": bson.M{
				"bsonType": number,
				"minimum":  5,
				"maximum":  720,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
