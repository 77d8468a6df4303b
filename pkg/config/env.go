package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStoreBackend = "STORE_BACKEND"
	EnvPostgresDSN  = "POSTGRES_DSN"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvConnTimeout  = "CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvNotificationSink     = "NOTIFICATION_SINK"
	EnvNotificationTopic    = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic = "NOTIFICATION_DLQ_TOPIC"
	EnvNotificationQueueURL = "NOTIFICATION_QUEUE_URL"
	EnvNotificationWorkers  = "NOTIFICATION_WORKERS"
	EnvNotificationBuffer   = "NOTIFICATION_BUFFER"
	EnvNotificationTimeout  = "NOTIFICATION_TIMEOUT"
	EnvNotifierGroupID      = "NOTIFIER_GROUP_ID"
	EnvNotificationDedupTTL = "NOTIFICATION_DEDUP_TTL"

	EnvCancelBaseURL = "CANCEL_BASE_URL"
)
