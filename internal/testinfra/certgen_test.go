package testinfra

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCertificates(t *testing.T) {
	certs, err := GenerateCertificates([]string{"localhost", "127.0.0.1"}, "importer")
	require.NoError(t, err)

	ca := parseCert(t, certs.CA.Cert)
	server := parseCert(t, certs.Server.Cert)
	client := parseCert(t, certs.Client.Cert)
	require.NotEmpty(t, certs.Client.Key)

	assert.True(t, ca.IsCA)
	assert.Equal(t, "pgjson-test-ca", ca.Subject.CommonName)

	assert.Contains(t, server.DNSNames, "localhost")
	require.Len(t, server.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", server.IPAddresses[0].String())

	assert.Equal(t, "importer", client.Subject.CommonName)

	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err = server.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}})
	assert.NoError(t, err)
	_, err = client.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}})
	assert.NoError(t, err)
}

func TestGenerateCertificates_ForeignCADoesNotVerify(t *testing.T) {
	a, err := GenerateCertificates([]string{"localhost"}, "postgres")
	require.NoError(t, err)
	b, err := GenerateCertificates([]string{"localhost"}, "postgres")
	require.NoError(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(parseCert(t, a.CA.Cert))

	_, err = parseCert(t, b.Client.Cert).Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}})
	assert.Error(t, err)
}

func TestCertificates_WriteToDir(t *testing.T) {
	certs, err := GenerateCertificates([]string{"localhost"}, "postgres")
	require.NoError(t, err)

	paths, err := certs.WriteToDir(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{paths.CACert, paths.ServerCert, paths.ServerKey, paths.ClientCert, paths.ClientKey} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), p)
		}
	}
}

func parseCert(t *testing.T, pemData []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(pemData)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}
