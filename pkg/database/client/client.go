/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	qbackoff "github.com/Nomoos/prismq-taskqueue/pkg/backoff"
	qconfig "github.com/Nomoos/prismq-taskqueue/pkg/config"
	dbutils "github.com/Nomoos/prismq-taskqueue/pkg/database/utils"
	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

const (
	TTask          = "tasks"
	TTaskType      = "task_types"
	TTaskHistory   = "task_history"
	TApiEndpoint   = "api_endpoints"
	TApiValidation = "api_validations"
)

var (
	once     sync.Once
	instance *Client
)

// Client represents a database client that manages both sqlx and gorm database connections.
// It encapsulates the database configuration and provides typed operations
// over the task queue relations.
type Client struct {
	db              *sqlx.DB // sqlx database instance
	gorm            *gorm.DB // gorm ORM database instance
	*dbutils.DBConfig          // Embedded database configuration

	slowQueryThreshold time.Duration
}

// NewClient creates a singleton instance of the database Client.
// It initializes the database configuration from common configuration,
// validates the parameters, and establishes connections using both sqlx and gorm.
// The initialization happens only once even if called multiple times.
func NewClient() *Client {
	once.Do(func() {
		cfg := &dbutils.DBConfig{
			DBName:         qconfig.GetDBName(),
			Username:       qconfig.GetDBUser(),
			Password:       qconfig.GetDBPassword(),
			Host:           qconfig.GetDBHost(),
			Port:           qconfig.GetDBPort(),
			SSLMode:        qconfig.GetDBSslMode(),
			MaxOpenConns:   qconfig.GetDBMaxOpenConns(),
			MaxIdleConns:   qconfig.GetDBMaxIdleConns(),
			MaxLifetime:    time.Duration(qconfig.GetDBMaxLifetimeSecond()) * time.Second,
			MaxIdleTime:    time.Duration(qconfig.GetDBMaxIdleTimeSecond()) * time.Second,
			ConnectTimeout: qconfig.GetDBConnectTimeoutSecond(),
			RequestTimeout: time.Duration(qconfig.GetDBRequestTimeoutSecond()) * time.Second,
		}
		if err := checkParams(cfg); err != nil {
			klog.ErrorS(err, "failed to check db params")
			return
		}
		db, err := dbutils.Connect(cfg, dbutils.PgDriver)
		if err != nil {
			klog.Errorf("%s", err.Error())
			return
		}
		// The database may still be coming up when the server starts.
		if err = qbackoff.Retry(db.Ping, 30*time.Second, 5*time.Second); err != nil {
			klog.ErrorS(err, "failed to ping db")
			return
		}
		gormDb, err := dbutils.ConnectGorm(cfg)
		if err != nil {
			klog.ErrorS(err, "failed to connect gorm")
			return
		}
		instance = &Client{
			db:                 db,
			gorm:               gormDb,
			DBConfig:           cfg,
			slowQueryThreshold: time.Duration(qconfig.GetSlowQueryThresholdMs()) * time.Millisecond,
		}
		klog.Infof("init db-client successfully! conn-timeout: %d(s), request-timeout: %d(s)",
			cfg.ConnectTimeout, qconfig.GetDBRequestTimeoutSecond())
	})
	return instance
}

// NewClientWithDB builds a Client around existing connections. Used by tests
// to run against sqlmock, and by callers that manage their own pool.
func NewClientWithDB(db *sqlx.DB, gormDB *gorm.DB) *Client {
	return &Client{
		db:                 db,
		gorm:               gormDB,
		DBConfig:           &dbutils.DBConfig{},
		slowQueryThreshold: 100 * time.Millisecond,
	}
}

// Close performs the Close operation.
func (c *Client) Close() {
	err := c.db.Close()
	if err != nil {
		klog.ErrorS(err, "failed to close db connection")
	}
}

// getDB retrieves DB for internal use.
func (c *Client) getDB() (*sqlx.DB, error) {
	if c == nil || c.db == nil {
		return nil, qerrors.NewInternalError("The client of db has not been initialized")
	}
	return c.db.Unsafe(), nil
}

// getGormDB retrieves the gorm handle for internal use.
func (c *Client) getGormDB() (*gorm.DB, error) {
	if c == nil || c.gorm == nil {
		return nil, qerrors.NewInternalError("The gorm client of db has not been initialized")
	}
	return c.gorm, nil
}

// beginTx opens a Read Committed transaction. Every caller must either
// commit or roll back; withTx wraps the bookkeeping.
func (c *Client) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, dbutils.ClassifyError(err)
	}
	return tx, nil
}

// withTx runs fn inside a transaction, guaranteeing rollback on every error
// path and classifying commit errors into the storage taxonomy.
func (c *Client) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.beginTx(ctx)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			klog.ErrorS(rbErr, "failed to rollback transaction")
		}
		return dbutils.ClassifyError(err)
	}
	if err = tx.Commit(); err != nil {
		return dbutils.ClassifyError(err)
	}
	return nil
}

// logSlowQuery logs queries whose execution exceeded the configured threshold.
func (c *Client) logSlowQuery(start time.Time, sqlStr string) {
	if !qconfig.IsSlowQueryLogEnable() {
		return
	}
	if cost := time.Since(start); c.slowQueryThreshold > 0 && cost > c.slowQueryThreshold {
		klog.Infof("slow query (%v): %s", cost, sqlStr)
	}
}

// queryContext applies the configured per-query timeout, if any.
func (c *Client) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.RequestTimeout)
	}
	return ctx, func() {}
}

// checkParams checks Params and returns the result.
func checkParams(cfg *dbutils.DBConfig) error {
	var errs []string
	if cfg.DBName == "" {
		errs = append(errs, "dbname not found")
	}
	if cfg.Username == "" {
		errs = append(errs, "username not found")
	}
	if cfg.Password == "" {
		errs = append(errs, "password not found")
	}
	if cfg.Host == "" {
		errs = append(errs, "host not found")
	}
	if cfg.SSLMode == "" {
		errs = append(errs, "ssl_mode not found")
	}
	if cfg.Port == 0 {
		errs = append(errs, "port not found")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid db config: %v", errs)
	}
	return nil
}
