// File: utils/constants.go
package utils

import "time"

// SessionKeyPrefix is the prefix used for Redis booking-session keys.
const SessionKeyPrefix = "session:"

// PendingCancelKeyPrefix is the prefix for selected-but-unconfirmed cancellations.
const PendingCancelKeyPrefix = "cancel:"

// HoldKeyPrefix is the prefix for interval-hold keys.
const HoldKeyPrefix = "hold:"

// PendingCancelTTL bounds how long a selected cancellation waits for its
// confirmation click.
const PendingCancelTTL = 10 * time.Minute
