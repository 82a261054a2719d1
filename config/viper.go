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

package config

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	liberr "github.com/sabouaram/graphbolt/errors"
)

// Load reads configuration from the given viper instance (already pointed
// at a file, env prefix, or flag set by the caller) into a Config seeded
// with Default() values, so any field the source omits keeps its default.
func Load(v *viper.Viper) (Config, liberr.Error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	applyDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, ErrorReadConfig.Error(err)
		}
	}

	decodeHook := viper.DecoderConfigOption(func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			durationDecodeHook(),
			c.DecodeHook,
		)
	})

	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return cfg, ErrorDecodeConfig.Error(err)
	}

	return cfg, nil
}

// applyDefaults seeds v's defaults from cfg so viper.Unmarshal only ever
// overrides fields the caller's source actually sets.
func applyDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("pool.max_connection_pool_size", cfg.Pool.MaxConnectionPoolSize)
	v.SetDefault("pool.connection_acquisition_timeout", cfg.Pool.ConnectionAcquisitionTimeout)
	v.SetDefault("pool.connection_timeout", cfg.Pool.ConnectionTimeout)
	v.SetDefault("pool.max_connection_lifetime", cfg.Pool.MaxConnectionLifetime)
	v.SetDefault("pool.keep_alive", cfg.Pool.KeepAlive)
	v.SetDefault("pool.encrypted", cfg.Pool.Encrypted)
	v.SetDefault("pool.trusted_certificates", cfg.Pool.TrustedCertificates)
	v.SetDefault("pool.user_agent", cfg.Pool.UserAgent)

	v.SetDefault("session.default_access_mode", cfg.Session.DefaultAccessMode)
	v.SetDefault("session.fetch_size", cfg.Session.FetchSize)

	v.SetDefault("retry.initial_retry_delay", cfg.Retry.InitialRetryDelay)
	v.SetDefault("retry.retry_delay_multiplier", cfg.Retry.RetryDelayMultiplier)
	v.SetDefault("retry.retry_delay_jitter_factor", cfg.Retry.RetryDelayJitterFactor)
	v.SetDefault("retry.max_transaction_retry_time", cfg.Retry.MaxTransactionRetryTime)

	v.SetDefault("routing.routing_table_purge_delay", cfg.Routing.RoutingTablePurgeDelay)
}
