package compiler

// Stage is the pipeline stage a shader is written for.
type Stage int

const (
	StageInvalid Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "invalid"
	}
}

// Language tags the shading-language dialect a source buffer is written
// in. It selects the front end used for compilation and keys the
// per-shader diagnostic text.
type Language int

const (
	LanguageESSL100 Language = iota
	LanguageESSL300
	LanguageWGSL
)

func (l Language) String() string {
	switch l {
	case LanguageESSL100:
		return "essl100"
	case LanguageESSL300:
		return "essl300"
	case LanguageWGSL:
		return "wgsl"
	default:
		return "unknown"
	}
}

// Compiler is the service shaders delegate translation to. The source
// buffer is read during Compile but never retained. InfoLog returns the
// most recent diagnostic text for the (stage, language) pair; the
// returned slice is owned by the service and must be copied before it
// is handed out.
type Compiler interface {
	Compile(source []byte, stage Stage, language Language) bool
	InfoLog(stage Stage, language Language) []byte
	EnableSourceDump()
}
