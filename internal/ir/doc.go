// Package ir provides the tree-shaped intermediate representation shared by
// every tinypy pass.
//
// A Node is a tagged operation with attributes, SSA operands and results,
// and nested single-block Regions. The same model carries both levels of IR:
//
//   - the high-level "tiny" dialect produced by the front-end (module,
//     function, assign, loop, var, binary_op, constant, return, call)
//   - the lowered SSA dialects produced by the lowering engine (func, arith,
//     memref and scf style operations with explicit loop-carried state)
//
// This package imports nothing internal. Every constructor verifies the node
// it builds against the schema for its kind and fails fast on malformed
// structure.
//
// Key design constraints:
//   - Values are produced exactly once, by a node result or a block parameter
//   - Nodes are immutable once attached, except for in-place attribute
//     patches through SetAttr
//   - Terminators (return, yield, condition, reduce.return) are always last
package ir
