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

package tlscfg_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/go-httpd/tlscfg"
)

func generateTempCertPair(dir string) (certFile, keyFile string) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	Expect(err).ToNot(HaveOccurred())

	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certFile)
	Expect(err).ToNot(HaveOccurred())
	defer func() { _ = certOut.Close() }()
	Expect(pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der})).To(Succeed())

	keyOut, err := os.Create(keyFile)
	Expect(err).ToNot(HaveOccurred())
	defer func() { _ = keyOut.Close() }()

	privBytes, err := x509.MarshalECPrivateKey(priv)
	Expect(err).ToNot(HaveOccurred())
	Expect(pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes})).To(Succeed())

	return certFile, keyFile
}

var _ = Describe("TLSConfig", func() {
	It("refuses to produce a *tls.Config with no certificate loaded", func() {
		c := tlscfg.New()
		_, err := c.TLS("")
		Expect(err).ToNot(BeNil())
	})

	It("loads a certificate pair from disk and produces a usable *tls.Config", func() {
		dir := GinkgoT().TempDir()
		certFile, keyFile := generateTempCertPair(dir)

		c := tlscfg.New()
		Expect(c.AddCertificatePairFile(keyFile, certFile)).To(BeNil())
		Expect(c.LenCertificatePair()).To(Equal(1))

		out, err := c.TLS("localhost")
		Expect(err).To(BeNil())
		Expect(out.Certificates).To(HaveLen(1))
		Expect(out.MinVersion).To(Equal(uint16(tls.VersionTLS12)))
	})

	It("reports an error for a missing certificate file", func() {
		c := tlscfg.New()
		err := c.AddCertificatePairFile("/no/such/key.pem", "/no/such/cert.pem")
		Expect(err).ToNot(BeNil())
	})

	It("clones independently of the source", func() {
		dir := GinkgoT().TempDir()
		certFile, keyFile := generateTempCertPair(dir)

		c := tlscfg.New()
		Expect(c.AddCertificatePairFile(keyFile, certFile)).To(BeNil())

		clone := c.Clone()
		clone.SetVersionMin(tls.VersionTLS13)

		orig, err := c.TLS("")
		Expect(err).To(BeNil())
		Expect(orig.MinVersion).To(Equal(uint16(tls.VersionTLS12)))

		cloned, err := clone.TLS("")
		Expect(err).To(BeNil())
		Expect(cloned.MinVersion).To(Equal(uint16(tls.VersionTLS13)))
	})
})
