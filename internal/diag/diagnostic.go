package diag

// Kind closes the error taxonomy of spec §7. Every stage of the pipeline
// reports exactly one of these per failure.
type Kind int

const (
	LexError Kind = iota
	ParseError
	TypeError
	BytecodeError
	VMError
	CodegenError
	IOError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case ParseError:
		return "ParseError"
	case TypeError:
		return "TypeError"
	case BytecodeError:
		return "BytecodeError"
	case VMError:
		return "VMError"
	case CodegenError:
		return "CodegenError"
	case IOError:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Diagnostic is the uniform error type that bubbles out of every pipeline
// stage, anchored to the span that caused it.
type Diagnostic struct {
	Kind    Kind
	Span    Span
	Name    string // short error name, e.g. "IllegalCharacter"
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Name != "" {
		return d.Name + ": " + d.Message
	}
	return d.Kind.String() + ": " + d.Message
}

// New builds a Diagnostic with the given kind, short name and message,
// anchored to span.
func New(kind Kind, span Span, name, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Span: span, Name: name, Message: message}
}
