/*package err contains the error taxonomy used by the mesh subsystem, plus
report-and-exit helpers for the driver binaries under cmd/.
*/
package err

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
)

// Kind distinguishes the fatal error categories that Mesh construction and
// restart can report. Refinement rejections are deliberately not a Kind:
// they are silent and data-driven, not reported through this type.
type Kind int

const (
	// Config covers invalid nx, extents, ratios, CFL, refinement regions
	// outside the mesh, levels above 63, and block sizes that don't
	// divide the mesh size.
	Config Kind = iota
	// Capacity covers nbtotal < nranks outside of test mode.
	Capacity
	// CorruptedRestart covers short reads and loclist/nbtotal mismatches
	// while rebuilding the tree from a restart file.
	CorruptedRestart
	// IO covers failures to open diagnostic or restart output.
	IO
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Capacity:
		return "CapacityError"
	case CorruptedRestart:
		return "CorruptedRestart"
	case IO:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Error is a tagged, non-exiting error. Mesh construction either returns a
// fully valid Mesh or a *Error describing why not; nothing in lib/mesh calls
// os.Exit.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(e error, kind Kind) bool {
	me, ok := e.(*Error)
	return ok && me.Kind == kind
}

// External reports an error to stderr and kills the process. It should be
// used when an error is something a user could reasonably be expected to fix
// through changes in configuration/data/environment. It has the same
// signature as the standard fmt.*printf() functions.
func External(format string, a ...interface{}) {
	log.Printf("tesseract exited early with the following error:\n"+format, a...)
	os.Exit(1)
}

// Internal reports an error to stderr along with a stack trace and kills the
// process. It should be used when the error requires a code dive to fix. It
// has the same signature as the standard fmt.*printf() functions.
func Internal(format string, a ...interface{}) {
	log.Println("tesseract exited early with the following error:")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n\n")
	debug.PrintStack()
	os.Exit(1)
}
