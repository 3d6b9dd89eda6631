package main

import (
	"testing"

	"github.com/cmourglia/zlox/manifest"
)

func TestVMConfigFromManifest(t *testing.T) {
	man := &manifest.Manifest{}
	man.VM.StackSize = 1024
	man.VM.HeapLimit = 500
	man.VM.StressGC = true

	cfg := vmConfig(man, 0, 0, false)
	if cfg.StackSize != 1024 || cfg.HeapLimit != 500 || !cfg.StressGC {
		t.Errorf("vmConfig = %+v, want manifest values", cfg)
	}
}

func TestVMConfigFlagsOverrideManifest(t *testing.T) {
	man := &manifest.Manifest{}
	man.VM.StackSize = 1024
	man.VM.HeapLimit = 500

	cfg := vmConfig(man, 512, 100, true)
	if cfg.StackSize != 512 || cfg.HeapLimit != 100 || !cfg.StressGC {
		t.Errorf("vmConfig = %+v, want flag values", cfg)
	}
}

func TestVMConfigWithoutManifest(t *testing.T) {
	cfg := vmConfig(nil, 0, 0, false)
	if cfg.StackSize != 0 || cfg.HeapLimit != 0 || cfg.StressGC {
		t.Errorf("vmConfig = %+v, want zero config", cfg)
	}
}
