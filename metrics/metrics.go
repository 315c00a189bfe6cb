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

// Package metrics is this daemon's optional Prometheus surface: live
// connection count, per-IP admission rejections, request counts by method
// and status, Digest nonce table occupancy, and body byte counters.
// Registration is opt-in — a Daemon built with a nil Registerer pays
// nothing for it, per spec.md §2.4's "Observability" component line.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collector vectors a Daemon updates as it runs. All
// fields are safe for concurrent use — they are the Prometheus client
// collector types themselves.
type Metrics struct {
	ConnectionsLive   prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	PerIPRejected     prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	NonceTableEntries prometheus.Gauge
	BytesRead         prometheus.Counter
	BytesWritten      prometheus.Counter
}

// New builds a Metrics bundle and registers every collector against reg.
// reg must not be nil; a Daemon built with a nil Registerer does not call
// New and holds a nil *Metrics, on which every method is a no-op.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		ConnectionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_live",
			Help:      "Number of currently open connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of connections accepted.",
		}),
		PerIPRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "per_ip_rejected_total",
			Help:      "Total number of connections rejected by the per-IP limiter.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests handled, by method and status.",
		}, []string{"method", "status"}),
		NonceTableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_nonce_entries",
			Help:      "Current number of live Digest auth nonce table entries.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Total bytes read from client sockets.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total bytes written to client sockets.",
		}),
	}

	reg.MustRegister(
		m.ConnectionsLive,
		m.ConnectionsTotal,
		m.PerIPRejected,
		m.RequestsTotal,
		m.NonceTableEntries,
		m.BytesRead,
		m.BytesWritten,
	)

	return m
}

// RequestCompleted records one handled request's method and status code.
func (m *Metrics) RequestCompleted(method string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 100 && status < 600:
		return statusClass[status/100]
	default:
		return "unknown"
	}
}

var statusClass = map[int]string{
	1: "1xx", 2: "2xx", 3: "3xx", 4: "4xx", 5: "5xx",
}

// ConnectionOpened and ConnectionClosed keep ConnectionsLive/ConnectionsTotal
// in sync with the daemon's accept/close hand-offs; both are no-ops on a
// nil *Metrics so callers never need a presence check.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsLive.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsLive.Dec()
}

func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.PerIPRejected.Inc()
}

func (m *Metrics) RecordRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesRead.Add(float64(n))
}

func (m *Metrics) RecordWrite(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesWritten.Add(float64(n))
}

func (m *Metrics) SetNonceTableEntries(n int) {
	if m == nil {
		return
	}
	m.NonceTableEntries.Set(float64(n))
}
