// Package ast holds SPL's in-memory program representation: an
// arena-indexed Expr tree (ExprID references, never pointers) plus a
// parallel Func arena, so passes that rewrite bindings in place — lambda
// lifting's closure conversion in particular — never have to chase or
// invalidate pointers.
package ast
