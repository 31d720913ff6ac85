// Package diagnostics renders the dispatcher's observational warnings and
// the method-error text. Warnings never affect control flow; callers emit
// them and move on.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects warnings, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func useColor() bool {
	if out != os.Stderr {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

const (
	ansiYellow = "\x1b[33m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
)

func warnf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if useColor() {
		fmt.Fprintf(out, ansiYellow+ansiBold+"WARNING: "+ansiReset+ansiYellow+format+ansiReset+"\n", args...)
		return
	}
	fmt.Fprintf(out, "WARNING: "+format+"\n", args...)
}

// FuncLoc formats a definition site the way warnings reference it.
func FuncLoc(file string, line int) string {
	if line > 0 {
		return fmt.Sprintf(" at %s:%d", file, line)
	}
	return ""
}

// WarnOverwrite reports a method definition replacing a type-equal one.
func WarnOverwrite(sig, module, oldLoc, newModule, newLoc string) {
	msg := fmt.Sprintf("Method definition %s in module %s%s overwritten", sig, module, oldLoc)
	if newModule != module {
		msg += " in module " + newModule
	}
	warnf("%s%s.", msg, newLoc)
}

// WarnAmbiguous reports a freshly recorded ambiguous pair. The fix hint
// names the intersection the user would have to define.
func WarnAmbiguous(newSig, newLoc, oldSig, oldLoc, isect string) {
	warnf("New definition\n    %s%s\nis ambiguous with:\n    %s%s.\nTo fix, define\n    %s\nbefore the new definition.",
		newSig, newLoc, oldSig, oldLoc, isect)
}

// WarnTracerFailure reports a tracer callback panic; always suppressed.
func WarnTracerFailure(v interface{}) {
	warnf("tracer callback function threw an error:\n%v", v)
}

// MethodErrorText renders the no-method-matches diagnostic.
func MethodErrorText(fname string, argTypes []string) string {
	s := "MethodError: no method matching " + fname + "("
	for i, at := range argTypes {
		if i > 0 {
			s += ", "
		}
		s += "::" + at
	}
	return s + ")"
}

// AmbiguousErrorText renders the ambiguous-call diagnostic.
func AmbiguousErrorText(fname string, argTypes []string, candidates []string) string {
	s := "MethodError: " + fname + "("
	for i, at := range argTypes {
		if i > 0 {
			s += ", "
		}
		s += "::" + at
	}
	s += ") is ambiguous. Candidates:"
	for _, c := range candidates {
		s += "\n  " + c
	}
	return s
}

// Abort prints argument information and aborts. Used only when a method
// error surfaces before the error machinery itself has been installed.
func Abort(fname string, args []string) {
	mu.Lock()
	fmt.Fprintf(out, "A method error occurred before the MethodError type was defined. Aborting...\n")
	fmt.Fprintf(out, "%s\n", fname)
	for _, a := range args {
		fmt.Fprintf(out, "%s\n", a)
	}
	mu.Unlock()
	os.Exit(1)
}
