/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified file path.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getInt64(key string, defaultValue int64) int64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt64(key)
}

// GetServerPort returns the API server port.
func GetServerPort() int {
	return getInt(serverPort, 8080)
}

// GetApiKey returns the fixed API key; empty disables authentication.
func GetApiKey() string {
	return getString(serverApiKey, "")
}

// GetMaxRequestBytes returns the request body ceiling in bytes.
func GetMaxRequestBytes() int64 {
	return getInt64(serverMaxRequestBytes, 1<<20)
}

// GetRequestTimeoutSecond returns the per-request deadline in seconds.
func GetRequestTimeoutSecond() int {
	return getInt(serverRequestTimeout, 30)
}

// GetDBHost returns the database host.
func GetDBHost() string {
	return getString(dbHost, "")
}

// GetDBPort returns the database port.
func GetDBPort() int {
	return getInt(dbPort, 5432)
}

// GetDBName returns the database name.
func GetDBName() string {
	return getString(dbName, "")
}

// GetDBUser returns the database username.
func GetDBUser() string {
	return getString(dbUser, "")
}

// GetDBPassword returns the database password.
func GetDBPassword() string {
	return getString(dbPassword, "")
}

// GetDBSslMode returns the database SSL mode.
func GetDBSslMode() string {
	return getString(dbSslMode, "disable")
}

// GetDBMaxOpenConns returns the maximum number of open database connections.
func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 0)
}

// GetDBMaxIdleConns returns the maximum number of idle database connections.
func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 0)
}

// GetDBMaxLifetimeSecond returns the maximum connection lifetime in seconds.
func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 0)
}

// GetDBMaxIdleTimeSecond returns the maximum connection idle time in seconds.
func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 0)
}

// GetDBConnectTimeoutSecond returns the database connect timeout in seconds.
func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeout, 10)
}

// GetDBRequestTimeoutSecond returns the per-query timeout in seconds.
func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeout, 30)
}

// GetSlowQueryThresholdMs returns the slow-query log threshold in milliseconds.
func GetSlowQueryThresholdMs() int {
	return getInt(dbSlowQueryThreshold, 100)
}

// GetClaimTimeoutSecond returns the seconds before a claimed task is reclaimable.
func GetClaimTimeoutSecond() int {
	return getInt(queueClaimTimeout, 300)
}

// GetMaxTaskAttempts returns the retry bound before a task is terminally failed.
func GetMaxTaskAttempts() int {
	return getInt(queueMaxTaskAttempts, 3)
}

// GetReclaimIntervalSecond returns the interval of the expired-claim sweep.
func GetReclaimIntervalSecond() int {
	return getInt(queueReclaimInterval, 30)
}

// IsHistoryEnabled returns whether task history rows are written on transitions.
func IsHistoryEnabled() bool {
	return getBool(queueHistoryEnabled, false)
}

// GetMaxPatternInputBytes returns the length cap applied to values matched
// against schema regex patterns.
func GetMaxPatternInputBytes() int {
	return getInt(schemaMaxPatternBytes, 10*1024)
}

// IsMetricsEnable returns whether the prometheus endpoint is exposed.
func IsMetricsEnable() bool {
	return getBool(metricsEnable, true)
}

// GetLogfilePath returns the log file path.
func GetLogfilePath() string {
	return getString(logFilePath, "")
}

// GetLogFileSizeMB returns the maximum log file size in megabytes.
func GetLogFileSizeMB() int {
	return getInt(logFileSizeMB, 0)
}

// IsSlowQueryLogEnable returns whether slow queries are logged.
func IsSlowQueryLogEnable() bool {
	return getBool(logSlowQueries, true)
}
