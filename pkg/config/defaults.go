package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "cardetail"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0

	DefaultBusinessStartHour           = 8
	DefaultBusinessEndHour             = 18
	DefaultBusinessDays                = "Mon,Tue,Wed,Thu,Fri,Sat"
	DefaultBusinessTimezone            = "America/New_York"
	DefaultCustomerSlotGranularityMin  = 30
	DefaultAdminSlotGranularityMin     = 60
	DefaultSlotReservationTTL          = 48 * time.Hour
	DefaultReminderCronHour            = 18
	DefaultOverdueCheckInterval        = 15 * time.Minute
	DefaultBookingEventsTopic          = "booking-events"
	DefaultBookingEventsDLQTopic       = "booking-events-dlq"
	DefaultSMTPPort                    = 587
	DefaultSMTPFrom                    = "bookings@cardetail.local"
	DefaultPaginationLimit             = 100
	DefaultPaginationLimitWhenNotGiven = 10
)
