// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the HTTPS JSON client used to deliver decoded
bank data to downstream services.

# TLS Configuration

The client negotiates TLS 1.2 or 1.3:

	config := transport.DefaultConfig()
	// MinTLSVersion: TLS 1.2
	// MaxTLSVersion: TLS 1.3

For TLS 1.2, only ECDHE suites with AES-GCM are offered:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

# Client Usage

	client := transport.NewClient(&transport.Config{
	    MinTLSVersion: transport.TLS12,
	    Timeout:       10 * time.Second,
	})

	header := http.Header{}
	header.Set("API-Key", apiKey)

	response, err := client.PostJSON(ctx, "https://registry.example.com/payment", header, payload)

# Errors

A response outside the 2xx range is returned as a [*StatusError]. Use
[StatusError.Temporary] to decide whether the request may be retried:

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
	    // do not retry
	}
*/
package transport
