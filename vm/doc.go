// Package vm implements the zlox virtual machine.
//
// This package contains:
//   - NaN-boxed value representation
//   - Bytecode chunk format and disassembler
//   - Heap with mark-and-sweep collection
//   - Stack-based bytecode interpreter
package vm
