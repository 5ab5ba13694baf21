// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package reliability provides delivery tracking, retries and duplicate
detection for bank file processing.

# Duplicate Detection

Banks redeliver files after gateway timeouts. Content already processed
within the duplicate window is recognised by its SHA-256 hash:

	tracker := reliability.NewTracker(24 * time.Hour)

	hash := reliability.ComputeContentHash(data)
	if tracker.IsDuplicate(hash) {
	    return nil
	}
	// process
	tracker.MarkProcessed(hash)

# Delivery Tracking

Each delivery to a downstream service moves through
Pending -> Sending -> Delivered or Failed. [Retry] drives these transitions:

	policy := reliability.RetryPolicy{
	    MaxRetries:    3,
	    RetryInterval: 2 * time.Second,
	    Multiplier:    2,
	}

	err := reliability.Retry(ctx, policy, tracker, "payments-"+key, func(ctx context.Context) error {
	    return post(ctx)
	})

Errors wrapped with [Permanent] stop retrying immediately.
*/
package reliability
