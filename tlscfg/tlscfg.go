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

// Package tlscfg is the daemon's external TLS collaborator: it wraps
// crypto/tls behind the same accessor shape the wider certificate-management
// ecosystem in this repository's corpus uses, trimmed to the pieces a single
// embeddable server actually needs — certificate pairs, root/client CA
// bundles, version bounds, and client-auth mode — without the CA-reload and
// multi-cipher-profile machinery a standalone certificate manager carries.
package tlscfg

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync"

	liberr "github.com/nabbar/go-httpd/errors"
)

// TLSConfig is the interface the daemon depends on. Nothing in conn,
// response, or postproc imports this package directly: a *tls.Config is
// handed to the listener once, at Daemon start.
type TLSConfig interface {
	AddCertificatePairFile(keyFile, certFile string) liberr.Error
	LenCertificatePair() int

	AddRootCAFile(path string) liberr.Error
	AddClientCAFile(path string) liberr.Error

	SetVersionMin(v uint16)
	SetVersionMax(v uint16)
	SetClientAuth(a tls.ClientAuthType)

	Clone() TLSConfig

	// TLS returns the *tls.Config this collaborator represents. serverName
	// is accepted for parity with SNI-aware callers but this trimmed
	// implementation serves the same certificate set regardless of name.
	TLS(serverName string) (*tls.Config, liberr.Error)
}

type cfg struct {
	mu sync.RWMutex

	cert []tls.Certificate
	root *x509.CertPool
	clnt *x509.CertPool

	verMin uint16
	verMax uint16
	auth   tls.ClientAuthType
}

// New returns a TLSConfig with no certificate pair configured. TLS will
// fail with ErrorNoCertificate until at least one pair is added.
func New() TLSConfig {
	return &cfg{
		verMin: tls.VersionTLS12,
		verMax: tls.VersionTLS13,
	}
}

func (c *cfg) AddCertificatePairFile(keyFile, certFile string) liberr.Error {
	crt, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return ErrorCertificatePairLoad.Error(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = append(c.cert, crt)
	return nil
}

func (c *cfg) LenCertificatePair() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cert)
}

func loadCAPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, os.ErrInvalid
	}
	return pool, nil
}

func (c *cfg) AddRootCAFile(path string) liberr.Error {
	pool, err := loadCAPool(path)
	if err != nil {
		return ErrorRootCALoad.Error(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = pool
	return nil
}

func (c *cfg) AddClientCAFile(path string) liberr.Error {
	pool, err := loadCAPool(path)
	if err != nil {
		return ErrorClientCALoad.Error(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clnt = pool
	return nil
}

func (c *cfg) SetVersionMin(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verMin = v
}

func (c *cfg) SetVersionMax(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verMax = v
}

func (c *cfg) SetClientAuth(a tls.ClientAuthType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = a
}

func (c *cfg) Clone() TLSConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := &cfg{
		cert:   append([]tls.Certificate(nil), c.cert...),
		root:   c.root,
		clnt:   c.clnt,
		verMin: c.verMin,
		verMax: c.verMax,
		auth:   c.auth,
	}
	return n
}

func (c *cfg) TLS(_ string) (*tls.Config, liberr.Error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.cert) == 0 {
		return nil, ErrorNoCertificate.Error(nil)
	}

	return &tls.Config{
		Certificates: append([]tls.Certificate(nil), c.cert...),
		RootCAs:      c.root,
		ClientCAs:    c.clnt,
		ClientAuth:   c.auth,
		MinVersion:   c.verMin,
		MaxVersion:   c.verMax,
	}, nil
}
