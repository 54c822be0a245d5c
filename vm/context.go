package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vela-lang/vela/vlbc"
)

// State is the context's position in its lifecycle.
type State uint8

const (
	// StateUnattached: no module; only registration calls are legal.
	StateUnattached State = iota
	// StateReady: module attached, ip at 0, stack empty.
	StateReady
	// StateRunning: at least one instruction executed, not yet terminal.
	StateRunning
	// StateHalted: HALT executed; the run ended successfully.
	StateHalted
	// StateFaulted: a fault stopped execution; ip stays at the faulting
	// instruction and stack/globals keep their in-flight contents.
	StateFaulted
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Native is a host-provided function invokable from bytecode via CALLN.
// args arrive in left-to-right call order. A Nil result pushes nothing.
type Native func(ctx *Context, args []Value) (Value, error)

// DefaultMaxStack bounds operand stack growth; exceeding it faults with
// OutOfMemory.
const DefaultMaxStack = 1 << 20

// Context is one VM execution context. It owns its stack, globals, and
// native registry exclusively; a Module may be shared read-only across
// contexts, a Context must not be shared across goroutines without
// external synchronization.
type Context struct {
	mod     *vlbc.Module
	ip      int
	stack   []Value
	globals []Value
	state   State
	fault   error

	byName  map[string]Native
	byIndex map[uint32]Native

	out      io.Writer // PRINT sink
	trace    io.Writer // per-instruction trace, nil = off
	maxStack int
}

// NewContext creates an empty, unattached context.
func NewContext() *Context {
	return &Context{
		state:    StateUnattached,
		byName:   make(map[string]Native),
		out:      os.Stdout,
		maxStack: DefaultMaxStack,
	}
}

// SetOutput redirects the PRINT sink.
func (c *Context) SetOutput(w io.Writer) { c.out = w }

// Output returns the PRINT sink, for natives that write alongside it.
func (c *Context) Output() io.Writer { return c.out }

// SetTrace enables per-instruction tracing to w; nil disables it.
func (c *Context) SetTrace(w io.Writer) { c.trace = w }

// SetMaxStack overrides the operand stack growth limit.
func (c *Context) SetMaxStack(n int) { c.maxStack = n }

// State returns the current lifecycle state.
func (c *Context) State() State { return c.state }

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// Module returns the attached module, or nil.
func (c *Context) Module() *vlbc.Module { return c.mod }

// StackDepth returns the number of values on the operand stack.
func (c *Context) StackDepth() int { return len(c.stack) }

// StackTop returns the value on top of the stack without removing it.
func (c *Context) StackTop() (Value, bool) {
	if len(c.stack) == 0 {
		return Value{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// RegisterNative registers fn under name. Registration may happen before
// or after attach; on attach every registered name present in the module's
// pool is resolved to its index for the fast dispatch path.
func (c *Context) RegisterNative(name string, fn Native) error {
	if name == "" || fn == nil {
		return vlbc.Errorf(vlbc.ErrBadArgument, "native registration needs a name and a function")
	}
	c.byName[name] = fn
	if c.mod != nil {
		if e, ok := c.mod.Pool.Lookup(name); ok {
			c.byIndex[e.Index()] = fn
		}
	}
	return nil
}

// Attach binds a validated module and resets execution state: ip to 0,
// stack emptied, globals sized to the module's pool and zeroed. Stale
// globals from a previously attached module never carry over.
func (c *Context) Attach(m *vlbc.Module) error {
	if m == nil {
		return vlbc.Errorf(vlbc.ErrBadArgument, "attach of nil module")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	c.mod = m
	c.ip = 0
	c.stack = c.stack[:0]
	c.globals = make([]Value, m.Pool.Len())
	c.fault = nil
	c.state = StateReady

	c.byIndex = make(map[uint32]Native, len(c.byName))
	for name, fn := range c.byName {
		if e, ok := m.Pool.Lookup(name); ok {
			c.byIndex[e.Index()] = fn
		}
	}
	return nil
}

// Detach releases the module, stack, and globals, returning the context to
// Unattached. Registered natives survive a detach and re-resolve on the
// next attach.
func (c *Context) Detach() {
	c.mod = nil
	c.ip = 0
	c.stack = nil
	c.globals = nil
	c.byIndex = nil
	c.fault = nil
	c.state = StateUnattached
}

// Global returns the global stored under name, or Nil.
func (c *Context) Global(name string) Value {
	if c.mod == nil {
		return Nil()
	}
	e, ok := c.mod.Pool.Lookup(name)
	if !ok {
		return Nil()
	}
	return c.globals[e.Index()]
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Step decodes exactly one instruction at ip, applies its effect, and
// advances ip by the instruction's size. It returns the resulting state;
// a non-nil error means the context faulted in place.
func (c *Context) Step() (State, error) {
	switch c.state {
	case StateUnattached:
		return c.state, vlbc.Errorf(vlbc.ErrBadArgument, "step on unattached context")
	case StateHalted:
		return c.state, nil
	case StateFaulted:
		return c.state, c.fault
	}

	if c.ip >= len(c.mod.Code) {
		return c.setFault(vlbc.Errorf(vlbc.ErrFault, "execution ran past end of code at offset %d", c.ip))
	}

	op := vlbc.Opcode(c.mod.Code[c.ip])
	info := vlbc.GetOpcodeInfo(op)
	if !op.IsValid() {
		// Unreachable on a validated module; kept for internal consistency.
		return c.setFault(vlbc.Errorf(vlbc.ErrBadBytecode, "unknown opcode 0x%02X at offset %d", byte(op), c.ip))
	}

	if c.trace != nil {
		fmt.Fprintf(c.trace, "[%04X] %-8s depth=%d\n", c.ip, info.Name, len(c.stack))
	}

	if err := c.execute(op); err != nil {
		return c.setFault(err)
	}

	if c.state == StateHalted {
		return c.state, nil
	}
	c.ip += 1 + info.OperandLen
	c.state = StateRunning
	return c.state, nil
}

// Run calls Step until Halted, a fault, or maxSteps instructions have
// executed (0 = unbounded). It returns the state it stopped in.
func (c *Context) Run(maxSteps int) (State, error) {
	steps := 0
	for {
		state, err := c.Step()
		if err != nil || state == StateHalted {
			return state, err
		}
		steps++
		if maxSteps > 0 && steps >= maxSteps {
			return state, nil
		}
	}
}

// setFault records the fault and leaves ip at the faulting instruction.
func (c *Context) setFault(err error) (State, error) {
	c.state = StateFaulted
	c.fault = err
	return c.state, err
}

// execute applies one instruction's effect. The operand layout was already
// bounds-checked by validation.
func (c *Context) execute(op vlbc.Opcode) error {
	code := c.mod.Code

	switch op {
	case vlbc.OpNop:
		return nil

	case vlbc.OpPushI:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+9]}
		return c.push(Int(in.Int()))

	case vlbc.OpPushF:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+9]}
		return c.push(Value{kind: KindFloat, num: in.FloatBits()})

	case vlbc.OpPushS:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+5]}
		return c.push(Str(c.mod.Pool.At(in.StrIndex())))

	case vlbc.OpAdd, vlbc.OpSub, vlbc.OpMul, vlbc.OpDiv:
		return c.arith(op)

	case vlbc.OpEq, vlbc.OpNeq, vlbc.OpLt, vlbc.OpGt, vlbc.OpLe, vlbc.OpGe:
		return c.compare(op)

	case vlbc.OpPrint:
		v, err := c.pop()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, v.String())
		return nil

	case vlbc.OpPop:
		_, err := c.pop()
		return err

	case vlbc.OpStoreG:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+5]}
		v, err := c.pop()
		if err != nil {
			return err
		}
		c.globals[in.StrIndex()] = v
		return nil

	case vlbc.OpLoadG:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+5]}
		return c.push(c.globals[in.StrIndex()])

	case vlbc.OpCallN:
		in := vlbc.Instruction{Op: op, Operands: code[c.ip+1 : c.ip+6]}
		return c.callNative(in.StrIndex(), in.Argc())

	case vlbc.OpHalt:
		c.state = StateHalted
		return nil

	default:
		return vlbc.Errorf(vlbc.ErrBadBytecode, "unhandled opcode %s", op)
	}
}

// arith implements ADD/SUB/MUL/DIV: integer arithmetic unless either
// operand is a float, in which case both promote; integer division
// truncates toward zero; division by zero faults on either path.
func (c *Context) arith(op vlbc.Opcode) error {
	b, err := c.pop()
	if err != nil {
		return err
	}
	a, err := c.pop()
	if err != nil {
		return err
	}
	if !a.isNumeric() || !b.isNumeric() {
		return vlbc.Errorf(vlbc.ErrTypeError, "%s on %s and %s", op, a.Kind(), b.Kind())
	}

	if a.Kind() == KindFloat || b.Kind() == KindFloat {
		x, y := a.toFloat(), b.toFloat()
		var r float64
		switch op {
		case vlbc.OpAdd:
			r = x + y
		case vlbc.OpSub:
			r = x - y
		case vlbc.OpMul:
			r = x * y
		case vlbc.OpDiv:
			if y == 0 {
				return vlbc.Errorf(vlbc.ErrFault, "float division by zero")
			}
			r = x / y
		}
		return c.push(Float(r))
	}

	x, y := a.AsInt(), b.AsInt()
	var r int64
	switch op {
	case vlbc.OpAdd:
		r = x + y
	case vlbc.OpSub:
		r = x - y
	case vlbc.OpMul:
		r = x * y
	case vlbc.OpDiv:
		if y == 0 {
			return vlbc.Errorf(vlbc.ErrFault, "integer division by zero")
		}
		r = x / y // truncates toward zero
	}
	return c.push(Int(r))
}

// compare implements EQ/NEQ/LT/GT/LE/GE. Ordering is numeric-only;
// equality additionally covers string pairs (by content) and same-kind
// nil/bool pairs. Int/int pairs compare exactly; widening both to
// float64 would collapse distinct values past 2^53.
func (c *Context) compare(op vlbc.Opcode) error {
	b, err := c.pop()
	if err != nil {
		return err
	}
	a, err := c.pop()
	if err != nil {
		return err
	}

	if a.Kind() == KindInt && b.Kind() == KindInt {
		x, y := a.AsInt(), b.AsInt()
		var r bool
		switch op {
		case vlbc.OpEq:
			r = x == y
		case vlbc.OpNeq:
			r = x != y
		case vlbc.OpLt:
			r = x < y
		case vlbc.OpGt:
			r = x > y
		case vlbc.OpLe:
			r = x <= y
		case vlbc.OpGe:
			r = x >= y
		}
		return c.push(Bool(r))
	}

	if a.isNumeric() && b.isNumeric() {
		x, y := a.toFloat(), b.toFloat()
		var r bool
		switch op {
		case vlbc.OpEq:
			r = x == y
		case vlbc.OpNeq:
			r = x != y
		case vlbc.OpLt:
			r = x < y
		case vlbc.OpGt:
			r = x > y
		case vlbc.OpLe:
			r = x <= y
		case vlbc.OpGe:
			r = x >= y
		}
		return c.push(Bool(r))
	}

	if op == vlbc.OpEq || op == vlbc.OpNeq {
		if eq, ok := valueEqual(a, b); ok {
			if op == vlbc.OpNeq {
				eq = !eq
			}
			return c.push(Bool(eq))
		}
	}
	return vlbc.Errorf(vlbc.ErrTypeError, "%s on %s and %s", op, a.Kind(), b.Kind())
}

// valueEqual reports equality for same-kind non-numeric pairs. The second
// result is false when the pair is not comparable.
func valueEqual(a, b Value) (bool, bool) {
	if a.Kind() != b.Kind() {
		return false, false
	}
	switch a.Kind() {
	case KindStr:
		return a.AsStr().Equal(b.AsStr()), true
	case KindNil:
		return true, true
	case KindBool:
		return a.AsBool() == b.AsBool(), true
	default:
		return false, false
	}
}

// callNative resolves and invokes a native. The argc arguments are popped
// before resolution, so a registry miss still drains them; this is an
// observable contract front ends rely on.
func (c *Context) callNative(nameIdx uint32, argc uint8) error {
	args := make([]Value, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		v, err := c.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	fn, ok := c.byIndex[nameIdx]
	if !ok {
		// Slow path: the native may have been registered before any
		// module was attached under a name this pool also carries.
		name := c.mod.Pool.At(nameIdx).String()
		fn, ok = c.byName[name]
		if !ok {
			return vlbc.Errorf(vlbc.ErrNotFound, "native %q not registered", name)
		}
		c.byIndex[nameIdx] = fn
	}

	result, err := fn(c, args)
	if err != nil {
		var verr *vlbc.Error
		if errors.As(err, &verr) {
			return err
		}
		return vlbc.Errorf(vlbc.ErrFault, "native %q: %v", c.mod.Pool.At(nameIdx), err)
	}
	if result.IsNil() {
		return nil
	}
	return c.push(result)
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func (c *Context) push(v Value) error {
	if len(c.stack) >= c.maxStack {
		return vlbc.Errorf(vlbc.ErrOutOfMemory, "operand stack exceeds %d values", c.maxStack)
	}
	c.stack = append(c.stack, v)
	return nil
}

func (c *Context) pop() (Value, error) {
	if len(c.stack) == 0 {
		return Value{}, vlbc.Errorf(vlbc.ErrFault, "stack underflow")
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v, nil
}
