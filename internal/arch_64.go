// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64 || arm64 || loong64 || mips64 || mips64le || ppc64 || ppc64le || riscv64 || s390x || sparc64 || wasm

package internal

// SixtyFourBit is true on architectures that can perform a single
// aligned 64-bit store/load as one indivisible bus cycle. Relative
// pointers and shm-safe unmanaged chunks rely on this to stay
// torn-write-proof across processes; see the init check in relptr.go.
const SixtyFourBit = true
