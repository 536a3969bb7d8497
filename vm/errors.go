package vm

import "fmt"

// ---------------------------------------------------------------------------
// Execution errors
// ---------------------------------------------------------------------------
//
// All execution errors are fatal to the current run but never crash the host:
// the engine transitions to StatusErrored and surfaces the error, the
// faulting token, and the last good snapshot. Nothing is retried.

// ExecError is implemented by every error the engine can produce while
// stepping a program. FaultToken returns the token being executed when the
// error occurred (the zero Token for limit errors raised between tokens).
type ExecError interface {
	error
	FaultToken() Token
}

// StackUnderflowError reports an opcode that required more operands than the
// value stack held.
type StackUnderflowError struct {
	Op    Opcode
	Token Token
	Need  int
	Have  int
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow: %s at %s needs %d operand(s), stack has %d", e.Op, e.Token, e.Need, e.Have)
}

// FaultToken implements ExecError.
func (e *StackUnderflowError) FaultToken() Token { return e.Token }

// StackOverflowError reports a push beyond the configured value-stack or
// state-stack depth.
type StackOverflowError struct {
	Op    Opcode
	Token Token
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow: %s at %s exceeds depth %d", e.Op, e.Token, e.Depth)
}

// FaultToken implements ExecError.
func (e *StackOverflowError) FaultToken() Token { return e.Token }

// DivisionByZeroError reports a DIV whose divisor operand was zero.
type DivisionByZeroError struct {
	Token Token
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero at %s", e.Token)
}

// FaultToken implements ExecError.
func (e *DivisionByZeroError) FaultToken() Token { return e.Token }

// StateStackUnderflowError reports a RESTORE_STATE with no matching
// SAVE_STATE.
type StateStackUnderflowError struct {
	Token Token
}

func (e *StateStackUnderflowError) Error() string {
	return fmt.Sprintf("state stack underflow: RESTORE_STATE at %s with no saved state", e.Token)
}

// FaultToken implements ExecError.
func (e *StateStackUnderflowError) FaultToken() Token { return e.Token }

// InvalidOpcodeError reports a token whose codon is not in the instruction
// table. The table is total over all 64 codons, so this is unreachable for
// tokenizer output; it guards direct Engine callers passing malformed tokens.
type InvalidOpcodeError struct {
	Token Token
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode: codon %q at %s", e.Token.Text, e.Token)
}

// FaultToken implements ExecError.
func (e *InvalidOpcodeError) FaultToken() Token { return e.Token }

// MissingOperandError reports a PUSH appearing as the final token, with no
// operand codon left to consume.
type MissingOperandError struct {
	Token Token
}

func (e *MissingOperandError) Error() string {
	return fmt.Sprintf("missing operand: PUSH at %s is the last token", e.Token)
}

// FaultToken implements ExecError.
func (e *MissingOperandError) FaultToken() Token { return e.Token }

// InstructionLimitError reports that the configured instruction ceiling was
// reached. This is the sandbox working as designed, not a bug: it guarantees
// the interpreter terminates on any input, including runaway loops.
type InstructionLimitError struct {
	Limit int
	Token Token
}

func (e *InstructionLimitError) Error() string {
	return fmt.Sprintf("instruction limit of %d reached at %s", e.Limit, e.Token)
}

// FaultToken implements ExecError.
func (e *InstructionLimitError) FaultToken() Token { return e.Token }
