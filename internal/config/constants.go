package config

// ConfigFileName is the options file looked up next to the host process.
const ConfigFileName = "fundis.yaml"

// IsTestMode indicates if the engine is running under the test harness.
// This is set once at startup before any method table exists.
var IsTestMode = false

// Call-cache geometry. NCallCache must stay a power of two so callsite
// hashes can be masked instead of reduced modulo.
const (
	NCallCacheBits = 12
	NCallCache     = 1 << NCallCacheBits
)

// MaxUnspecializedConflicts bounds how many guard entries a widened cache
// signature may carry. Widening with more overlapping definitions than this
// is abandoned and the original concrete signature is cached instead.
const MaxUnspecializedConflicts = 32

// TypeMapLevelThreshold is the linear-list length at which a typemap node
// splits into the two-level form discriminated on one argument slot.
const TypeMapLevelThreshold = 8

// VarargSpecSlack is how many slots past MaxArgs a vararg specialization
// keeps before the tail collapses into a single vararg slot.
const VarargSpecSlack = 2

// MacroSigil prefixes method names that never get the inference treatment.
const MacroSigil = '@'

// Builtin type names registered by the type system at startup.
const (
	AnyTypeName      = "Any"
	NumberTypeName   = "Number"
	RealTypeName     = "Real"
	IntTypeName      = "Int"
	FloatTypeName    = "Float64"
	BoolTypeName     = "Bool"
	StringTypeName   = "String"
	FunctionTypeName = "Function"
	DataTypeName     = "DataType"
	UnionKindName    = "Union"
	TupleTypeName    = "Tuple"
	BottomTypeName   = "Union{}"
)
