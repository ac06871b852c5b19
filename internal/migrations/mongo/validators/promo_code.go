package validators

import "go.mongodb.org/mongo-driver/bson"

var PromoCodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"code",
			"name",
			"type",
			"value",
			"max_usage_per_user",
			"current_usage",
			"is_active",
			"valid_from",
			"valid_until",
			"usage_history",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"code": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z0-9]{3,20}$",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"type": bson.M{
				"enum": []string{"percentage", "fixed"},
			},

			"value": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"minimum_order_amount": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"max_usage": bson.M{
				"bsonType": number,
				"minimum":  1,
			},

			"max_usage_per_user": bson.M{
				"bsonType": number,
				"minimum":  1,
			},

			"current_usage": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"valid_from": bson.M{
				"bsonType": "date",
			},

			"valid_until": bson.M{
				"bsonType": "date",
			},

			"usage_history": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"user_id", "booking_id", "discount_amount", "used_at"},
				},
			},
		},
	},
}
