package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvMongoTransactions = "MONGO_TRANSACTIONS"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvBusinessStartHour          = "BUSINESS_START_HOUR"
	EnvBusinessEndHour            = "BUSINESS_END_HOUR"
	EnvBusinessDays               = "BUSINESS_DAYS"
	EnvBusinessTimezone           = "BUSINESS_TIMEZONE"
	EnvCustomerSlotGranularityMin = "CUSTOMER_SLOT_GRANULARITY_MIN"
	EnvAdminSlotGranularityMin    = "ADMIN_SLOT_GRANULARITY_MIN"
	EnvSlotReservationTTL         = "SLOT_RESERVATION_TTL"

	EnvRazorpayKey    = "RAZORPAY_KEY"
	EnvRazorpaySecret = "RAZORPAY_SECRET"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPFrom     = "SMTP_FROM"

	EnvOperatorEmail = "OPERATOR_EMAIL"

	EnvEventsEnabled = "EVENTS_ENABLED"

	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"

	EnvReminderCronHour     = "REMINDER_CRON_HOUR"
	EnvOverdueCheckInterval = "OVERDUE_CHECK_INTERVAL"
)
