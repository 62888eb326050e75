package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw       string
		wantName  string
		wantValue interface{}
		wantOK    bool
	}{
		{"--headless", "headless", true, true},
		{"--disable-gpu", "disable-gpu", true, true},
		{"--window-size=1280,800", "window-size", "1280,800", true},
		{"  --proxy-server=http://10.0.0.1:3128 ", "proxy-server", "http://10.0.0.1:3128", true},
		{"ignore-certificate-errors", "ignore-certificate-errors", true, true},
		{"--", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			name, value, ok := parseFlag(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestChromeDriver_AvailableWithExecPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-chrome")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))

	assert.NoError(t, (&ChromeDriver{ExecPath: bin}).Available())

	err := (&ChromeDriver{ExecPath: filepath.Join(dir, "missing")}).Available()
	assert.ErrorIs(t, err, ErrDriverUnavailable)
}

func TestChromeDriver_AllocatorOptionsIncludeFlags(t *testing.T) {
	d := &ChromeDriver{ExecPath: "/usr/bin/chromium"}
	base := len(d.allocatorOptions(Options{}))

	opts := d.allocatorOptions(Options{Headless: true, Flags: []string{"--lang=en", "--", "--mute-audio"}})
	assert.Len(t, opts, base+2)
}

func TestIsCertificateError(t *testing.T) {
	assert.True(t, isCertificateError(errors.New("page load error net::ERR_CERT_AUTHORITY_INVALID")))
	assert.False(t, isCertificateError(errors.New("page load error net::ERR_CONNECTION_REFUSED")))
	assert.False(t, isCertificateError(nil))
}
