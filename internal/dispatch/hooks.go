package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/diagnostics"
	"github.com/funvibe/fundis/internal/log"
	"github.com/funvibe/fundis/internal/typemap"
)

// codegenMu serializes definition insertion, specialization building,
// inference invocation, and cache invalidation. The dispatch fast path
// never takes it.
var codegenMu sync.Mutex

// typeinfMu is the separate inferencer mutex, exposed so the hook can
// re-enter dispatch without deadlocking on codegenMu.
var typeinfMu sync.Mutex

// TypeInfBegin acquires the inferencer mutex.
func TypeInfBegin() { typeinfMu.Lock() }

// TypeInfEnd releases the inferencer mutex.
func TypeInfEnd() { typeinfMu.Unlock() }

var inPureCallback atomic.Int32

// IsInPureContext reports whether a tracer callback is running; in that
// context collaborators suppress side effects.
func IsInPureContext() bool { return inPureCallback.Load() > 0 }

var options atomic.Pointer[config.Options]

func init() {
	opts := config.DefaultOptions()
	options.Store(&opts)
}

// Options returns the current engine options.
func Options() config.Options { return *options.Load() }

// SetOptions replaces the engine options.
func SetOptions(opts config.Options) { options.Store(&opts) }

// InferenceHook is the external type inferencer: given a specialization
// it may attach code and must return the specialization to use. It may
// recursively dispatch; it serializes its own internals through
// TypeInfBegin/TypeInfEnd.
type InferenceHook func(sp *Specialization, force bool) (*Specialization, error)

// CompilerHook materializes native code pointers on a specialization.
type CompilerHook func(sp *Specialization) error

var (
	inferHook        InferenceHook
	compilerHook     CompilerHook
	inInferenceDepth int // codegen lock held
)

// SetInferenceHook installs the inferencer and immediately sweeps every
// pre-existing uninferred specialization through it with force set.
func SetInferenceHook(h InferenceHook) {
	codegenMu.Lock()
	inferHook = h
	var pending []*Specialization
	eachTable(func(mt *MethodTable) {
		mt.Defs.Visit(func(e *typemap.Entry) bool {
			if m, ok := e.Payload.(*Method); ok {
				EachSpecialization(m, func(sp *Specialization) bool {
					if !sp.Inferred() {
						pending = append(pending, sp)
					}
					return true
				})
			}
			return true
		})
	})
	for _, sp := range pending {
		typeInfer(sp, true)
	}
	codegenMu.Unlock()
}

// SetCompiler installs the code generator used by the precompile surface.
func SetCompiler(h CompilerHook) {
	codegenMu.Lock()
	compilerHook = h
	codegenMu.Unlock()
}

// typeInfer runs the inference hook on sp. Callers hold the codegen
// lock; it is released around the hook call so the hook can recursively
// dispatch without deadlocking. A hook failure is caught: the
// specialization stays uncompiled and dispatch proceeds to its fallback.
func typeInfer(sp *Specialization, force bool) {
	if inferHook == nil || sp.InInference() {
		return
	}
	if inInferenceDepth > 0 && !force {
		// the hook is already running further up this stack; refuse the
		// recursion rather than re-enter it
		return
	}
	sp.inInference.Store(true)
	inInferenceDepth++
	hook := inferHook
	// the hook may recursively dispatch; it serializes itself through
	// TypeInfBegin/TypeInfEnd, so codegen must not be held across it
	codegenMu.Unlock()
	res, err := runInferHookWith(hook, sp, force)
	codegenMu.Lock()
	inInferenceDepth--
	sp.inInference.Store(false)
	if err != nil {
		log.DefaultLogger.Warn("inference failed",
			"section", "dispatch",
			"spec", sp.SpecTypes.String(),
			"err", errors.Wrapf(err, "infer %s%s", sp.Def.Name, sp.SpecTypes.String()))
		return
	}
	if res != nil {
		res.MarkInferred()
	}
}

func runInferHookWith(hook InferenceHook, sp *Specialization, force bool) (res *Specialization, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("inference hook panicked: %v", r)
		}
	}()
	return hook(sp, force)
}

// compileSpec invokes the compiler hook. Codegen lock held.
func compileSpec(sp *Specialization) error {
	if compilerHook == nil {
		return nil
	}
	if err := compilerHook(sp); err != nil {
		return errors.Wrapf(err, "compile %s%s", sp.Def.Name, sp.SpecTypes.String())
	}
	return nil
}

// Tracing hooks. Callbacks run in the pure context; a panicking callback
// is caught, logged, and suppressed.

// MethodTracer fires after specialization of a method marked traced.
type MethodTracer func(sp *Specialization)

// NewMethodTracer fires after a method is inserted into a table.
type NewMethodTracer func(m *Method)

// LinfoTracer fires after code is generated for a specialization.
type LinfoTracer func(sp *Specialization)

var (
	tracerMu        sync.Mutex
	methodTracer    MethodTracer
	newMethodTracer NewMethodTracer
	linfoTracer     LinfoTracer
)

// SetMethodTracer installs the post-specialization tracer.
func SetMethodTracer(t MethodTracer) {
	tracerMu.Lock()
	methodTracer = t
	tracerMu.Unlock()
}

// SetNewMethodTracer installs the post-insertion tracer.
func SetNewMethodTracer(t NewMethodTracer) {
	tracerMu.Lock()
	newMethodTracer = t
	tracerMu.Unlock()
}

// SetLinfoTracer installs the post-codegen tracer.
func SetLinfoTracer(t LinfoTracer) {
	tracerMu.Lock()
	linfoTracer = t
	tracerMu.Unlock()
}

func callTracer(fn func()) {
	inPureCallback.Add(1)
	defer func() {
		inPureCallback.Add(-1)
		if r := recover(); r != nil {
			diagnostics.WarnTracerFailure(r)
			log.DefaultLogger.Debug("tracer callback failed", "section", "trace", "err", r)
		}
	}()
	fn()
}

func fireMethodTracer(sp *Specialization) {
	tracerMu.Lock()
	t := methodTracer
	tracerMu.Unlock()
	if t != nil {
		callTracer(func() { t(sp) })
	}
}

func fireNewMethodTracer(m *Method) {
	tracerMu.Lock()
	t := newMethodTracer
	tracerMu.Unlock()
	if t != nil {
		callTracer(func() { t(m) })
	}
}

func fireLinfoTracer(sp *Specialization) {
	tracerMu.Lock()
	t := linfoTracer
	tracerMu.Unlock()
	if t != nil {
		callTracer(func() { t(sp) })
	}
}
