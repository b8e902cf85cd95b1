// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build 386 || arm || mips || mipsle || ppc || s390 || armbe || mipsbe || riscv32

package internal

// SixtyFourBit is false on 32-bit architectures, which cannot perform
// a single-cycle atomic store of the 64-bit relative pointers this
// module packs chunk slots into.
const SixtyFourBit = false
