package resources

import (
	"bytes"
	"io"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/glacier/driver/compiler"
	"github.com/spaghettifunk/glacier/driver/config"
	"github.com/spaghettifunk/glacier/driver/core"
	"github.com/spaghettifunk/glacier/driver/renderer/vulkan"
)

// Shader owns the source text attached to one pipeline stage, delegates
// translation to the compiler service and manages the single native
// shader module built from the compiled instruction stream.
//
// The stored source is the concatenation of every fragment passed to
// SetSource, always NUL-terminated. The instruction stream is populated
// from the outside (the program link step) after a successful Compile;
// this object only consumes it.
type Shader struct {
	context  *vulkan.Context
	compiler compiler.Compiler
	cfg      *config.Config
	sink     io.Writer

	source       []byte
	sourceLength int
	stage        compiler.Stage
	language     compiler.Language
	compiled     bool

	instructions []uint32
	module       vk.ShaderModule
}

func NewShader(context *vulkan.Context, comp compiler.Compiler, stage compiler.Stage, language compiler.Language, cfg *config.Config) *Shader {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Shader{
		context:  context,
		compiler: comp,
		stage:    stage,
		language: language,
		cfg:      cfg,
	}
}

func (s *Shader) Stage() compiler.Stage       { return s.stage }
func (s *Shader) Language() compiler.Language { return s.language }
func (s *Shader) IsCompiled() bool            { return s.compiled }
func (s *Shader) Module() vk.ShaderModule     { return s.module }

// SetDiagnosticSink directs raw source dumps somewhere other than the
// log, e.g. a capture file. Only used when dump_shader_source is set.
func (s *Shader) SetDiagnosticSink(w io.Writer) {
	s.sink = w
}

func (s *Shader) freeSource() {
	s.source = nil
	s.sourceLength = 0
}

// SetSource replaces the held source with the concatenation of the
// given fragments. The effective length of fragment i is lengths[i]
// when lengths is present and lengths[i] >= 0; otherwise the fragment
// is read up to its first NUL byte. A nil fragment list, or fragments
// that sum to zero bytes, leave the shader with no source. The compiled
// flag is reset regardless of outcome.
func (s *Shader) SetSource(fragments [][]byte, lengths []int32) {
	s.freeSource()
	s.compiled = false

	if len(fragments) == 0 {
		return
	}

	effective := make([]int, len(fragments))
	total := 0
	for i, fragment := range fragments {
		if lengths != nil && i < len(lengths) && lengths[i] >= 0 {
			effective[i] = int(lengths[i])
		} else if idx := bytes.IndexByte(fragment, 0); idx >= 0 {
			effective[i] = idx
		} else {
			effective[i] = len(fragment)
		}
		total += effective[i]
	}

	if total == 0 {
		return
	}

	buffer := make([]byte, 0, total+1)
	for i, fragment := range fragments {
		if effective[i] > 0 {
			buffer = append(buffer, fragment[:effective[i]]...)
		}
	}
	buffer = append(buffer, 0)

	s.source = buffer
	s.sourceLength = total

	if s.cfg.Debug.SaveShaderSources && s.compiler != nil {
		s.compiler.EnableSourceDump()
	}
	if s.cfg.Debug.DumpShaderSource {
		s.dumpSource()
	}
}

func (s *Shader) dumpSource() {
	text := s.source[:s.sourceLength]
	core.LogDebug("%s shader source (%s):\n%s", s.stage, s.language, text)
	if s.sink != nil {
		if _, err := s.sink.Write(text); err != nil {
			core.LogWarn("unable to write shader source to diagnostic sink: %s", err.Error())
		}
	}
}

// SourceLength reports the stored source length including the NUL
// sentinel, or 0 when no source is held.
func (s *Shader) SourceLength() int {
	if s.sourceLength > 0 {
		return s.sourceLength + 1
	}
	return 0
}

// Source returns a fresh copy of the stored source including the NUL
// sentinel, or nil when no source is held. The caller owns the copy.
func (s *Shader) Source() []byte {
	if s.source == nil {
		return nil
	}
	return append([]byte(nil), s.source...)
}

// Compile hands the stored source to the compiler service. Whether an
// absent source compiles is the service's call, not this object's.
func (s *Shader) Compile() bool {
	if s.compiler == nil {
		core.LogWarn("shader compile requested with no compiler service bound")
		s.compiled = false
		return false
	}
	s.compiled = s.compiler.Compile(s.source, s.stage, s.language)
	return s.compiled
}

// InfoLog returns a fresh copy of the compiler service's current
// diagnostic text for this shader, or nil when there is none. The copy
// is independent of the service-owned storage.
func (s *Shader) InfoLog() []byte {
	if s.compiler == nil {
		return nil
	}
	log := s.compiler.InfoLog(s.stage, s.language)
	if len(log) == 0 {
		return nil
	}
	return append([]byte(nil), log...)
}

func (s *Shader) InfoLogLength() int {
	if s.compiler == nil {
		return 0
	}
	return len(s.compiler.InfoLog(s.stage, s.language))
}

// SetInstructionStream stores the compiled SPIR-V word stream the next
// CreateModule call consumes. The program link step populates it after
// a successful Compile.
func (s *Shader) SetInstructionStream(words []uint32) {
	s.instructions = append([]uint32(nil), words...)
}

// CreateModule builds the native shader module from the instruction
// stream, destroying any previous module first. An empty stream yields
// a nil handle without touching the native API. A native creation
// failure is reported with a nil handle and the module left absent.
// Calling this on a non-vertex, non-fragment shader is a caller error.
func (s *Shader) CreateModule() vk.ShaderModule {
	if s.stage != compiler.StageVertex && s.stage != compiler.StageFragment {
		panic("shader module creation requires a vertex or fragment stage")
	}

	s.DestroyModule()

	if len(s.instructions) == 0 {
		return nil
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		PNext:    nil,
		Flags:    0,
		CodeSize: uint64(len(s.instructions) * 4),
		PCode:    s.instructions,
	}
	createInfo.Deref()

	module, res := s.context.API.CreateShaderModule(s.context.Device, &createInfo, s.context.Allocator)
	if res != vk.Success {
		core.LogError("%s shader module creation failed: %s", s.stage, vulkan.ResultString(res))
		return nil
	}

	s.module = module
	return s.module
}

// DestroyModule releases the native module. No-op when absent.
func (s *Shader) DestroyModule() {
	if s.module != nil {
		s.context.API.DestroyShaderModule(s.context.Device, s.module, s.context.Allocator)
		s.module = nil
	}
}

// Destroy releases everything the shader owns. Safe to call in any
// state.
func (s *Shader) Destroy() {
	s.freeSource()
	s.DestroyModule()
}
