package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
)

func TestNewDriver_UsesChromePath(t *testing.T) {
	dir := t.TempDir()
	common.SetConfigDir(dir)
	defer common.SetConfigDir("")

	bin := filepath.Join(dir, "chrome-beta")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	yaml := "chrome_path: " + bin + "\n"
	if err := os.WriteFile(filepath.Join(dir, common.PortalFileName), []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	portalCfg, err := config.LoadPortal()
	if err != nil {
		t.Fatalf("LoadPortal() error = %v", err)
	}

	driver := newDriver(portalCfg)
	if driver.ExecPath != bin {
		t.Errorf("ExecPath = %q, want %q", driver.ExecPath, bin)
	}
	if err := driver.Available(); err != nil {
		t.Errorf("Available() error = %v, want the configured binary to be found", err)
	}
}

func TestNewDriver_DefaultSearchesPath(t *testing.T) {
	if driver := newDriver(config.DefaultPortal()); driver.ExecPath != "" {
		t.Errorf("ExecPath = %q, want empty", driver.ExecPath)
	}
}
