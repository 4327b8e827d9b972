package ast

// ExprID is a non-owning reference into a File's expression arena. The
// zero value, NoExprID, means "absent" rather than a valid node — mirrors
// TypeID in internal/types.
type ExprID uint32

const NoExprID ExprID = 0

// FuncID is a non-owning reference into a File's function arena.
type FuncID uint32

const NoFuncID FuncID = 0
