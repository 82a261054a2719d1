/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the driver's tunable defaults: pool sizing, session
// defaults, retry backoff and routing table purge delay. Values are plain
// structs with mapstructure tags so they can be decoded from a
// github.com/spf13/viper source (file, env, flags) by the driver facade.
package config

import "time"

// Pool configures the per-address connection pool.
type Pool struct {
	MaxConnectionPoolSize         int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout  time.Duration `mapstructure:"connection_acquisition_timeout"`
	ConnectionTimeout             time.Duration `mapstructure:"connection_timeout"`
	MaxConnectionLifetime         time.Duration `mapstructure:"max_connection_lifetime"`
	KeepAlive                     bool          `mapstructure:"keep_alive"`
	LivenessCheckTimeout          time.Duration `mapstructure:"liveness_check_timeout"`
	Encrypted                     bool          `mapstructure:"encrypted"`
	TrustedCertificates           string        `mapstructure:"trusted_certificates"`
	UserAgent                     string        `mapstructure:"user_agent"`
	StrictReset                   bool          `mapstructure:"strict_reset"`
}

func DefaultPool() Pool {
	return Pool{
		MaxConnectionPoolSize:        100,
		ConnectionAcquisitionTimeout: 60 * time.Second,
		ConnectionTimeout:            30 * time.Second,
		MaxConnectionLifetime:        3600 * time.Second,
		KeepAlive:                    true,
		LivenessCheckTimeout:         0,
		Encrypted:                    false,
		TrustedCertificates:          "system",
		UserAgent:                    "graphbolt/1.0",
	}
}

// Session configures default session behavior.
type Session struct {
	DefaultAccessMode                  string `mapstructure:"default_access_mode"`
	Database                           string `mapstructure:"database"`
	FetchSize                          int64  `mapstructure:"fetch_size"`
	ImpersonatedUser                   string `mapstructure:"impersonated_user"`
	NotificationsMinSeverity           string `mapstructure:"notifications_min_severity"`
	NotificationsDisabledClassifications []string `mapstructure:"notifications_disabled_classifications"`
}

func DefaultSession() Session {
	return Session{
		DefaultAccessMode: "write",
		FetchSize:         1000,
	}
}

// Retry configures the managed-transaction retry loop.
type Retry struct {
	InitialRetryDelay     time.Duration   `mapstructure:"initial_retry_delay"`
	RetryDelayMultiplier  float64         `mapstructure:"retry_delay_multiplier"`
	RetryDelayJitterFactor float64        `mapstructure:"retry_delay_jitter_factor"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_transaction_retry_time"`

	// TransientDenylist names transient server error codes excluded from
	// retry despite being in the TransientError category -- configuration-
	// driven rather than hard-coded.
	TransientDenylist map[string]bool `mapstructure:"transient_denylist"`
}

func DefaultRetry() Retry {
	return Retry{
		InitialRetryDelay:       time.Second,
		RetryDelayMultiplier:    2.0,
		RetryDelayJitterFactor:  0.2,
		MaxTransactionRetryTime: 30 * time.Second,
		TransientDenylist: map[string]bool{
			"Neo.TransientError.Transaction.Terminated":      true,
			"Neo.TransientError.Transaction.LockClientStopped": true,
		},
	}
}

// Routing configures the routed pool's table lifecycle.
type Routing struct {
	RoutingTablePurgeDelay time.Duration `mapstructure:"routing_table_purge_delay"`
}

func DefaultRouting() Routing {
	return Routing{RoutingTablePurgeDelay: 30 * time.Second}
}

// Config bundles every tunable surface the driver facade decodes from a
// viper source in one shot.
type Config struct {
	Pool    Pool    `mapstructure:"pool"`
	Session Session `mapstructure:"session"`
	Retry   Retry   `mapstructure:"retry"`
	Routing Routing `mapstructure:"routing"`
}

func Default() Config {
	return Config{
		Pool:    DefaultPool(),
		Session: DefaultSession(),
		Retry:   DefaultRetry(),
		Routing: DefaultRouting(),
	}
}
