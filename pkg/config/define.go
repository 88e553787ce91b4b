/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix          = "server."
	serverPort            = serverPrefix + "port"
	serverApiKey          = serverPrefix + "api_key"
	serverMaxRequestBytes = serverPrefix + "max_request_bytes"
	serverRequestTimeout  = serverPrefix + "request_timeout_second"

	// db
	dbPrefix             = "db."
	dbHost               = dbPrefix + "host"
	dbPort               = dbPrefix + "port"
	dbName               = dbPrefix + "name"
	dbUser               = dbPrefix + "user"
	dbPassword           = dbPrefix + "password"
	dbSslMode            = dbPrefix + "ssl_mode"
	dbMaxOpenConns       = dbPrefix + "max_open_conns"
	dbMaxIdleConns       = dbPrefix + "max_idle_conns"
	dbMaxLifetimeSecond  = dbPrefix + "max_lifetime_second"
	dbMaxIdleTimeSecond  = dbPrefix + "max_idle_time_second"
	dbConnectTimeout     = dbPrefix + "connect_timeout_second"
	dbRequestTimeout     = dbPrefix + "request_timeout_second"
	dbSlowQueryThreshold = dbPrefix + "slow_query_threshold_ms"

	// queue
	queuePrefix          = "queue."
	queueClaimTimeout    = queuePrefix + "claim_timeout_second"
	queueMaxTaskAttempts = queuePrefix + "max_task_attempts"
	queueReclaimInterval = queuePrefix + "reclaim_interval_second"
	queueHistoryEnabled  = queuePrefix + "history_enabled"

	// schema validation
	schemaPrefix          = "schema."
	schemaMaxPatternBytes = schemaPrefix + "max_pattern_input_bytes"

	// metrics
	metricsPrefix = "metrics."
	metricsEnable = metricsPrefix + "enable"

	// log
	logPrefix      = "log."
	logFilePath    = logPrefix + "file"
	logFileSizeMB  = logPrefix + "file_size_mb"
	logSlowQueries = logPrefix + "slow_queries"
)
