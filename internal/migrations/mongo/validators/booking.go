package validators

import "go.mongodb.org/mongo-driver/bson"

var number = []string{"int", "long"}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"contact",
			"services",
			"total_amount",
			"discount_amount",
			"scheduled_date",
			"scheduled_time",
			"duration",
			"status",
			"vehicle",
			"address",
			"frequency",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"contact": bson.M{
				"bsonType": "object",
				"required": []string{"name", "email"},
				"properties": bson.M{
					"name":  bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
					"email": bson.M{"bsonType": "string"},
					"phone": bson.M{"bsonType": "string", "pattern": `^\+[1-9][0-9]{1,14}$`},
				},
			},

			"services": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 20,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"service_id", "name", "quantity", "price", "duration"},
					"properties": bson.M{
						"service_id": bson.M{"bsonType": "string"},
						"name":       bson.M{"bsonType": "string"},
						"quantity":   bson.M{"bsonType": number, "minimum": 1, "maximum": 20},
						"price":      bson.M{"bsonType": number, "minimum": 0},
						"duration":   bson.M{"bsonType": number, "minimum": 0},
					},
				},
			},

			"total_amount": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"discount_amount": bson.M{
				"bsonType": number,
				"minimum":  0,
			},

			"promo_code": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z0-9]{3,20}$",
			},

			"scheduled_date": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},

			"scheduled_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},

			"duration": bson.M{
				"bsonType": number,
				"minimum":  1,
				"maximum":  1440,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "in-progress", "completed", "cancelled", "no-show"},
			},

			"frequency": bson.M{
				"enum": []string{"one-time", "weekly", "bi-weekly", "monthly"},
			},

			"vehicle": bson.M{
				"bsonType": "object",
				"required": []string{"make", "model", "year", "color", "type"},
				"properties": bson.M{
					"year": bson.M{"bsonType": number, "minimum": 1900},
					"type": bson.M{"enum": []string{"sedan", "suv", "truck", "luxury", "other"}},
				},
			},

			"address": bson.M{
				"bsonType": "object",
				"required": []string{"street", "city", "state", "zip"},
			},

			"payment": bson.M{
				"bsonType": "object",
				"required": []string{"payment_intent_id", "status"},
				"properties": bson.M{
					"status": bson.M{"enum": []string{"pending", "paid", "failed", "refunded"}},
				},
			},

			"notes": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"author", "content", "created_at"},
				},
			},

			"rating": bson.M{
				"bsonType": number,
				"minimum":  1,
				"maximum":  5,
			},

			"overdue": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
