// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biostore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.KeyVariantSymmetric, cfg.KeyVariant())
	assert.Equal(t, "127.0.0.1:8484", cfg.Server.Address())
	assert.Equal(t, types.DefaultKeyName, cfg.Keys.DefaultName)
	assert.True(t, cfg.Keys.RecreateOnInvalidation)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Storage.Backend, cfg.Storage.Backend)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
storage:
  backend: memory
keys:
  variant: asymmetric
  default_name: vault
auth:
  platform: console
  max_failed_attempts: 3
ratelimit:
  prompts:
    enabled: true
    requests_per_minute: 6
    burst: 2
    max_idle: 5m
server:
  port: 9000
  write_timeout: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, types.KeyVariantAsymmetric, cfg.KeyVariant())
	assert.Equal(t, "vault", cfg.Keys.DefaultName)
	assert.Equal(t, 3, cfg.Auth.MaxFailedAttempts)
	assert.True(t, cfg.RateLimit.Prompts.Enabled)
	assert.Equal(t, 6, cfg.RateLimit.Prompts.RequestsPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Prompts.MaxIdle)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)

	// untouched sections keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, DefaultPINHashConfig(), cfg.Auth.PINHash)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "logging: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "storage:\n  backend: s3\n"))
	assert.ErrorContains(t, err, "invalid storage backend")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BIOSTORE_LOG_LEVEL", "error")
	t.Setenv("BIOSTORE_STORAGE", "keyring")
	t.Setenv("BIOSTORE_DATA_DIR", "/var/lib/biostore")
	t.Setenv("BIOSTORE_KEY_VARIANT", "rsa")
	t.Setenv("BIOSTORE_KEY_NAME", "vault")
	t.Setenv("BIOSTORE_HOST", "0.0.0.0")
	t.Setenv("BIOSTORE_PORT", "9999")
	t.Setenv("BIOSTORE_MAX_FAILED_ATTEMPTS", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, StorageKeyring, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/biostore", cfg.Storage.Path)
	assert.Equal(t, types.KeyVariantAsymmetric, cfg.KeyVariant())
	assert.Equal(t, "vault", cfg.Keys.DefaultName)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Auth.MaxFailedAttempts)
}

func TestEnvOverrides_InvalidPortIgnored(t *testing.T) {
	for _, port := range []string{"not-a-port", "0", "70000"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("BIOSTORE_PORT", port)
			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, 8484, cfg.Server.Port)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"file without path", func(c *Config) { c.Storage.Path = "" }, "storage path is required"},
		{"keyring without service", func(c *Config) {
			c.Storage.Backend = StorageKeyring
			c.Storage.Keyring.Service = ""
		}, "keyring service is required"},
		{"variant", func(c *Config) { c.Keys.Variant = "ecdsa" }, "invalid key variant"},
		{"default name", func(c *Config) { c.Keys.DefaultName = "../etc" }, "invalid default key name"},
		{"platform", func(c *Config) { c.Auth.Platform = "faceid" }, "unknown auth platform"},
		{"failed attempts", func(c *Config) { c.Auth.MaxFailedAttempts = -1 }, "max_failed_attempts"},
		{"pin hash", func(c *Config) { c.Auth.PINHash.Threads = 0 }, "pin_hash"},
		{"rate limit", func(c *Config) {
			c.RateLimit.HTTP.RequestsPerMinute = 0
		}, "ratelimit.http"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics path"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"tls cert", func(c *Config) { c.Server.TLS.Enabled = true }, "cert_file"},
		{"tls key", func(c *Config) {
			c.Server.TLS.Enabled = true
			c.Server.TLS.CertFile = "cert.pem"
		}, "key_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestPassphrase(t *testing.T) {
	cfg := Default()
	t.Setenv("BIOSTORE_PASSPHRASE", "")
	assert.Nil(t, cfg.Passphrase())

	t.Setenv("BIOSTORE_PASSPHRASE", "hunter2")
	assert.Equal(t, []byte("hunter2"), cfg.Passphrase())

	cfg.Storage.PassphraseEnv = ""
	assert.Nil(t, cfg.Passphrase())
}

func TestPINHashConfig_Params(t *testing.T) {
	p := PINHashConfig{Time: 1, MemoryKiB: 1024, Threads: 2}.Params()
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint32(1024), p.Memory)
	assert.Equal(t, uint8(2), p.Threads)
	assert.Equal(t, uint32(32), p.KeyLen)
}

func writeCert(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "biostore-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestLoadTLSConfig(t *testing.T) {
	disabled := &TLSConfig{}
	tc, err := disabled.LoadTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tc)

	certFile, keyFile := writeCert(t, t.TempDir())

	cfg := &TLSConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		ClientCAFile: certFile,
		MinVersion:   "TLS1.3",
		CipherSuites: []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"},
	}
	tc, err = cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), tc.MinVersion)
	assert.Equal(t, tls.RequireAndVerifyClientCert, tc.ClientAuth)
	assert.NotNil(t, tc.ClientCAs)
	assert.Equal(t, []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256}, tc.CipherSuites)
	assert.Len(t, tc.Certificates, 1)
}

func TestLoadTLSConfig_Errors(t *testing.T) {
	certFile, keyFile := writeCert(t, t.TempDir())

	tests := []struct {
		name string
		cfg  TLSConfig
	}{
		{"missing cert", TLSConfig{Enabled: true, CertFile: "/nonexistent", KeyFile: keyFile}},
		{"bad version", TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "SSL3"}},
		{"bad suite", TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, CipherSuites: []string{"NULL"}}},
		{"bad client CA", TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientCAFile: keyFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.LoadTLSConfig()
			assert.Error(t, err)
		})
	}
}
