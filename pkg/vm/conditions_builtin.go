package vm

import (
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// conditionKind pairs a struct-type with the field list used to build
// instances of it, so newCondition can populate "message" (and any extra
// fields) positionally without every call site repeating the layout.
type conditionKind struct {
	Type   *object.StructType
	Fields []string // Fields[0] is always "message"
}

func defineCondition(name string, parent *object.StructType, extraFields ...string) *conditionKind {
	fields := append([]string{"message"}, extraFields...)
	return &conditionKind{
		Type:   &object.StructType{Name: name, Parent: parent, Fields: fields},
		Fields: fields,
	}
}

// The condition hierarchy of spec.md §7: a root ^condition, a continuable
// ^error base beneath it, and the concrete runtime error kinds the VM
// itself raises beneath that. User code may extend this tree with its own
// struct-type children via the same define-condition-type machinery the
// reader/compiler exposes (outside pkg/vm's concern).
var (
	condConditionRoot = defineCondition("^condition", nil)
	condError         = defineCondition("^error", condConditionRoot.Type)

	condBignumError           = defineCondition("^rt-bignum-error", condError.Type)
	condBignumConversionError = defineCondition("^rt-bignum-conversion-error", condError.Type)
	condDivideByZeroError     = defineCondition("^rt-divide-by-zero-error", condError.Type)

	condVariableUnboundError        = defineCondition("^rt-variable-unbound-error", condError.Type, "name")
	condDynamicVariableUnboundError = defineCondition("^rt-dynamic-variable-unbound-error", condError.Type, "name")
	condEnvironVariableUnboundError = defineCondition("^rt-environ-variable-unbound-error", condError.Type, "name")
	condComputedVariableError       = defineCondition("^rt-computed-variable-error", condError.Type, "name")
	condComputedVariableNoAccessor  = defineCondition("^rt-computed-variable-no-accessor-error", condError.Type, "name")

	condFunctionError      = defineCondition("^rt-function-error", condError.Type)
	condFunctionArityError = defineCondition("^rt-function-arity-error", condError.Type, "expected", "got")

	condIOError         = defineCondition("^i/o-error", condError.Type, "handle")
	condIOReadError     = defineCondition("^i/o-read-error", condIOError.Type, "handle")
	condIOWriteError    = defineCondition("^i/o-write-error", condIOError.Type, "handle")
	condIOClosedError   = defineCondition("^i/o-closed-error", condIOError.Type, "handle")
	condIOFilenameError = defineCondition("^i/o-filename-error", condIOError.Type, "filename")
	condIOEOFError      = defineCondition("^i/o-eof-error", condIOError.Type, "handle")

	condSystemError = defineCondition("^system-error", condError.Type)
)

// newCondition allocates an instance of k with message set to msg; any
// remaining declared fields are left nil (callers that need to populate
// them build the instance directly with object.NewInstance/Set).
func newCondition(k *conditionKind, msg string) *object.StructInstance {
	inst := object.NewInstance(k.Type)
	inst.Set("message", value.Pointer(object.NewString(msg)))
	return inst
}

// installBaseTraps pushes the single trap frame every thread is born
// with: it matches ^condition, its handler is the thread's own default
// handler, and its next-trap-sp of -1 ends the chain. No second (outer
// or restart) frame is installed.
func installBaseTraps(t *Thread) {
	defaultHandler := &object.Primitive{
		Name:  "%default-condition-handler",
		Arity: 1,
		Fn: func(args []value.Value) (value.Value, error) {
			return value.Unspec, nil
		},
	}
	// Built directly rather than via PUSH-TRAP (which resolves its
	// condition-type argument through a module constant that doesn't
	// exist yet at thread birth).
	t.TrapSP = -1
	t.Push(value.Fixnum(t.TrapSP))
	t.Push(value.Pointer(condConditionRoot.Type))
	t.Push(value.Pointer(defaultHandler))
	t.Push(markerTrap)
	t.TrapSP = int64(len(t.Stack) - 4)
}
