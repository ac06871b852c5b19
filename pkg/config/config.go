package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"cardetail/pkg/client"
	"cardetail/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	// MongoTransactions requires a replica set.
	MongoTransactions bool

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BusinessStartHour          int
	BusinessEndHour            int
	BusinessDays               []time.Weekday
	BusinessLocation           *time.Location
	CustomerSlotGranularityMin int
	AdminSlotGranularityMin    int
	SlotReservationTTL         time.Duration

	RazorpayKey    string
	RazorpaySecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	OperatorEmail string

	EventsEnabled         bool
	BookingEventsTopic    string
	BookingEventsDLQTopic string

	ReminderCronHour     int
	OverdueCheckInterval time.Duration

	Log    *logger.Logger
	Client *client.Client

	businessDaysRaw string
	timezoneRaw     string
}

// Load reads an optional .env file, then the environment, and exits on invalid configuration.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	cfg := fromEnv()
	cfg.Log = log
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func fromEnv() *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		MongoTransactions: getEnvStr(EnvMongoTransactions, "false") == "true",

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		BusinessStartHour:          getEnvNum(EnvBusinessStartHour, DefaultBusinessStartHour),
		BusinessEndHour:            getEnvNum(EnvBusinessEndHour, DefaultBusinessEndHour),
		CustomerSlotGranularityMin: getEnvNum(EnvCustomerSlotGranularityMin, DefaultCustomerSlotGranularityMin),
		AdminSlotGranularityMin:    getEnvNum(EnvAdminSlotGranularityMin, DefaultAdminSlotGranularityMin),
		SlotReservationTTL:         getEnvDuration(EnvSlotReservationTTL, DefaultSlotReservationTTL),

		RazorpayKey:    getEnvStr(EnvRazorpayKey, ""),
		RazorpaySecret: getEnvStr(EnvRazorpaySecret, ""),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername: getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:     getEnvStr(EnvSMTPFrom, DefaultSMTPFrom),

		OperatorEmail: getEnvStr(EnvOperatorEmail, ""),

		EventsEnabled:         getEnvStr(EnvEventsEnabled, "true") == "true",
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),

		ReminderCronHour:     getEnvNum(EnvReminderCronHour, DefaultReminderCronHour),
		OverdueCheckInterval: getEnvDuration(EnvOverdueCheckInterval, DefaultOverdueCheckInterval),

		businessDaysRaw: getEnvStr(EnvBusinessDays, DefaultBusinessDays),
		timezoneRaw:     getEnvStr(EnvBusinessTimezone, DefaultBusinessTimezone),
	}
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects Redis only when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("REDIS_ADDR not set, using in-memory idempotency store")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":     cfg.MongoConnTimeout,
		"RateLimitWindow":      cfg.RateLimitWindow,
		"RequestTimeout":       cfg.RequestTimeout,
		"IdempotencyTTL":       cfg.IdempotencyTTL,
		"ReadTimeout":          cfg.ReadTimeout,
		"WriteTimeout":         cfg.WriteTimeout,
		"IdleTimeout":          cfg.IdleTimeout,
		"ShutdownTimeout":      cfg.ShutdownTimeout,
		"SlotReservationTTL":   cfg.SlotReservationTTL,
		"OverdueCheckInterval": cfg.OverdueCheckInterval,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.BusinessStartHour < 0 || cfg.BusinessStartHour > 23 {
		errors = append(errors, fmt.Sprintf("BusinessStartHour must be between 0 and 23, got: %d", cfg.BusinessStartHour))
	}
	if cfg.BusinessEndHour <= cfg.BusinessStartHour || cfg.BusinessEndHour > 24 {
		errors = append(errors, fmt.Sprintf("BusinessEndHour (%d) must be after BusinessStartHour (%d) and at most 24", cfg.BusinessEndHour, cfg.BusinessStartHour))
	}
	if cfg.CustomerSlotGranularityMin <= 0 {
		errors = append(errors, fmt.Sprintf("CustomerSlotGranularityMin must be positive, got: %d", cfg.CustomerSlotGranularityMin))
	}
	if cfg.AdminSlotGranularityMin <= 0 {
		errors = append(errors, fmt.Sprintf("AdminSlotGranularityMin must be positive, got: %d", cfg.AdminSlotGranularityMin))
	} else if cfg.CustomerSlotGranularityMin > 0 && cfg.AdminSlotGranularityMin%cfg.CustomerSlotGranularityMin != 0 {
		errors = append(errors, fmt.Sprintf("AdminSlotGranularityMin (%d) must be a multiple of CustomerSlotGranularityMin (%d)", cfg.AdminSlotGranularityMin, cfg.CustomerSlotGranularityMin))
	}
	if cfg.ReminderCronHour < 0 || cfg.ReminderCronHour > 23 {
		errors = append(errors, fmt.Sprintf("ReminderCronHour must be between 0 and 23, got: %d", cfg.ReminderCronHour))
	}

	if cfg.BusinessDays == nil && cfg.businessDaysRaw != "" {
		days, err := ParseWeekdays(cfg.businessDaysRaw)
		if err != nil {
			errors = append(errors, err.Error())
		}
		cfg.BusinessDays = days
	}
	if cfg.BusinessLocation == nil && cfg.timezoneRaw != "" {
		loc, err := time.LoadLocation(cfg.timezoneRaw)
		if err != nil {
			errors = append(errors, fmt.Sprintf("BusinessTimezone is not a valid IANA zone, got: %s", cfg.timezoneRaw))
		}
		cfg.BusinessLocation = loc
	}
	if cfg.BusinessLocation == nil {
		cfg.BusinessLocation = time.UTC
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"mongo_transactions", cfg.MongoTransactions,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"redis_addr", cfg.RedisAddr,
		"business_hours", fmt.Sprintf("%02d:00-%02d:00", cfg.BusinessStartHour, cfg.BusinessEndHour),
		"business_days", cfg.BusinessDays,
		"business_timezone", cfg.BusinessLocation.String(),
		"customer_slot_granularity_min", cfg.CustomerSlotGranularityMin,
		"admin_slot_granularity_min", cfg.AdminSlotGranularityMin,
		"slot_reservation_ttl", cfg.SlotReservationTTL,
		"razorpay_configured", cfg.RazorpayKey != "" && cfg.RazorpaySecret != "",
		"smtp_host", cfg.SMTPHost,
		"booking_events_topic", cfg.BookingEventsTopic,
		"reminder_cron_hour", cfg.ReminderCronHour,
	)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekdays parses a comma separated list such as "Mon,Tue,Sat".
func ParseWeekdays(raw string) ([]time.Weekday, error) {
	var days []time.Weekday
	for part := range strings.SplitSeq(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if len(name) > 3 {
			name = name[:3]
		}
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("BusinessDays contains unknown weekday: %s", part)
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("BusinessDays cannot be empty")
	}
	return days, nil
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPaginationLimitWhenNotGiven
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
