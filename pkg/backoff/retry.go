/*
 * Copyright (C) 2025-2026, PrismQ Authors. All rights reserved.
 * See LICENSE for license information.
 */

package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	qerrors "github.com/Nomoos/prismq-taskqueue/pkg/errors"
)

// Retry executes an operation with exponential backoff retry logic.
// It retries the operation with exponential backoff intervals until the
// operation succeeds or the maximum elapsed time is reached.
func Retry(op backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	if err := backoff.Retry(op, b); err != nil {
		return err
	}
	return nil
}

// DeadlockRetry executes an operation with fixed-interval retry logic for
// storage deadlocks. It retries only while the error classifies as a
// deadlock; any other error, or reaching the retry count, stops the loop.
func DeadlockRetry(op backoff.Operation, count int, interval time.Duration) error {
	var err error
	for i := 0; i < count; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if i == count-1 || !qerrors.IsDeadlock(err) {
			return err
		}
		time.Sleep(interval)
	}
	return err
}
