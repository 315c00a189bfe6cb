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

// Package daemon owns the listener lifecycle: binding, admission, the
// pluggable run-loop that turns accepted sockets into conn.Connection
// instances, and graceful shutdown. It is the component every application
// embedding this library calls into directly, the same role
// httpserver.Server played for its caller.
package daemon

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"

	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/tlscfg"
)

// Mode selects how accepted connections are handed off to the code that
// drives their Connection state machine, per spec.md §6's "designers must
// support at least two of: select-style, thread-per-connection,
// thread-pool, or a caller-supplied event loop".
type Mode uint8

const (
	// ModeThreadPerConnection spawns one goroutine per accepted connection.
	// The default: idiomatic Go, since goroutines are cheap and the
	// runtime's own netpoller already multiplexes their readiness.
	ModeThreadPerConnection Mode = iota

	// ModeThreadPool bounds concurrency to a fixed worker count consuming
	// accepted connections from a shared channel, for callers who want a
	// hard ceiling on concurrently-running handler goroutines regardless
	// of ConnectionLimit.
	ModeThreadPool

	// ModeInternalSelect behaves like ModeThreadPerConnection but also
	// registers every live connection's earliest deadline in a shared
	// internal/timerheap.Heap and runs one extra goroutine that force-closes
	// connections whose deadline already elapsed, as a backstop independent
	// of each connection goroutine's own net.Conn deadline. This is this
	// library's analogue of a single select(2) loop driving many sockets:
	// Go's net package hides raw file descriptors behind the runtime
	// poller, so there is no portable equivalent of an application-level
	// FD_SET to hand back to the caller.
	ModeInternalSelect

	// ModeExternalEvents disables the internal accept loop entirely. The
	// caller drives admission itself via Daemon.AcceptOne and reads
	// Daemon.NextTimeout/ExpireConnections to integrate this library's
	// connections into its own event loop.
	ModeExternalEvents
)

// PolicyCallback lets the embedding application veto an otherwise-admitted
// connection (after the hard ConnectionLimit and PerIPLimit checks have
// passed), per spec.md §4.1's three-stage admission order.
type PolicyCallback func(remoteAddr string) bool

// Options configures one Daemon. Most fields are decodable from a plain
// map via OptionsFromMap (github.com/mitchellh/mapstructure, the same
// decoder the teacher's configuration layer uses); the callback and
// collaborator fields are wired programmatically instead.
type Options struct {
	Listen                string        `mapstructure:"listen" validate:"required"`
	Mode                  Mode          `mapstructure:"mode"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout" validate:"required"`
	TotalLifetimeTimeout  time.Duration `mapstructure:"total_lifetime_timeout" validate:"required"`
	ShutdownGrace         time.Duration `mapstructure:"shutdown_grace" validate:"required"`
	PerIPLimit            int           `mapstructure:"per_ip_limit"`
	ConnectionLimit       int           `mapstructure:"connection_limit"`
	ConnMemoryLimit       int           `mapstructure:"conn_memory_limit" validate:"required,min=1024"`
	ThreadPoolSize        int           `mapstructure:"thread_pool_size"`
	ListenBacklog         int           `mapstructure:"listen_backlog"`
	ReusePort             bool          `mapstructure:"reuse_port"`
	RFCStrictLineEndings  bool          `mapstructure:"rfc_strict_line_endings"`
	MetricsNamespace      string        `mapstructure:"metrics_namespace"`

	// PolicyCallback, NotifyStarted, Registerer, TLS and PanicHook are collaborator objects,
	// not scalar configuration, so they are excluded from mapstructure
	// decoding and set directly on the Options value. Basic/Digest
	// authentication is not one of them: per the auth package's doc comment, a
	// conn.Handler calls into the auth package itself and turns the result
	// into a 401/403 Response, so the Daemon never needs to hold a *auth.Digest.
	PolicyCallback PolicyCallback                `mapstructure:"-"`
	NotifyStarted  func()                        `mapstructure:"-"`
	Registerer     prometheus.Registerer         `mapstructure:"-"`
	TLS            tlscfg.TLSConfig              `mapstructure:"-"`
	PanicHook      func(remoteAddr string, r interface{}) `mapstructure:"-"`
}

// Validate applies go-playground/validator struct tags, translating
// failures into a liberr.Error hierarchy exactly as DigestConfig.Validate
// and the teacher's ServerConfig.Validate both do.
func (o Options) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(o)
	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorOptionsValidate.Error(e)
	}

	out := ErrorOptionsValidate.Error(nil)
	for _, e := range err.(validator.ValidationErrors) {
		out.Add(fmt.Errorf("option field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}
	if out.HasParent() {
		return out
	}
	return nil
}

// OptionsFromMap decodes a generic configuration map (as loaded from JSON,
// YAML or TOML by the embedding application) into Options, the same
// mapstructure-based pattern the teacher's config loader follows.
func OptionsFromMap(m map[string]interface{}) (Options, liberr.Error) {
	var o Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &o,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return o, ErrorOptionsDecode.Error(err)
	}
	if err = dec.Decode(m); err != nil {
		return o, ErrorOptionsDecode.Error(err)
	}
	return o, nil
}
