package native

import "fmt"

// Handle is an opaque engine reference: a slot index in the low 32 bits and
// a generation in the high 32 bits. The zero Handle is null.
type Handle uint64

func MakeHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsNull() bool       { return h == 0 }

func (h Handle) String() string {
	if h.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%d#%d", h.Index(), h.Generation())
}

// Typed handles. The embedded Handle keeps them comparable and gives each
// the same accessors; distinct types stop a shape from being passed where an
// actor is expected.
type (
	Foundation struct{ Handle }
	Physics    struct{ Handle }
	Dispatcher struct{ Handle }
	Scene      struct{ Handle }
	Shape      struct{ Handle }
	Actor      struct{ Handle }
	Material   struct{ Handle }
)
