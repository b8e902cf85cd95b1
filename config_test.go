// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "testing"

func TestConfig_AddMempoolKeepsFindMempoolBestFit(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 10)
	cfg.AddMempool(256, 5)
	cfg.AddMempool(1024, 2)

	idx, ok := cfg.FindMempool(100)
	if !ok || idx != 1 {
		t.Fatalf("FindMempool(100) = %d,%v want 1,true", idx, ok)
	}
	idx, ok = cfg.FindMempool(64)
	if !ok || idx != 0 {
		t.Fatalf("FindMempool(64) = %d,%v want 0,true", idx, ok)
	}
	if _, ok := cfg.FindMempool(2000); ok {
		t.Fatal("FindMempool should fail when no tier is large enough")
	}
}

func TestConfig_AddMempoolRejectsDecreasingSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic adding a smaller tier after a larger one")
		}
	}()
	var cfg Config
	cfg.AddMempool(256, 1)
	cfg.AddMempool(64, 1)
}

func TestConfig_RequiredMemorySizesAreConsistent(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 4)
	cfg.AddMempool(128, 2)

	full := cfg.RequiredFullMemorySize()
	want := cfg.RequiredChunkMemorySize() + cfg.RequiredManagementMemorySize() + cfg.RequiredChunkManagementPoolMemorySize()
	if full != want {
		t.Fatalf("RequiredFullMemorySize() = %d, want %d (sum of parts)", full, want)
	}
	if full == 0 {
		t.Fatal("RequiredFullMemorySize() should be nonzero for a non-empty config")
	}
}
