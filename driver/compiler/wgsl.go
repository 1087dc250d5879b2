package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
	"github.com/google/uuid"

	"github.com/spaghettifunk/glacier/driver/core"
)

type resultKey struct {
	stage    Stage
	language Language
}

// WGSLCompiler translates WGSL shader source to SPIR-V through naga and
// keeps the compiled word stream and diagnostic text per (stage,
// language) pair. Each successful Compile supersedes the previous
// result for that pair.
//
// The ESSL front ends are not part of this build; compiling an ESSL
// source reports failure through the info log.
type WGSLCompiler struct {
	logs    map[resultKey][]byte
	streams map[resultKey][]uint32

	dumpEnabled bool
	dumpDir     string
}

func NewWGSLCompiler(dumpDir string) *WGSLCompiler {
	return &WGSLCompiler{
		logs:    make(map[resultKey][]byte),
		streams: make(map[resultKey][]uint32),
		dumpDir: dumpDir,
	}
}

func (c *WGSLCompiler) Compile(source []byte, stage Stage, language Language) bool {
	key := resultKey{stage: stage, language: language}
	delete(c.streams, key)

	if language != LanguageWGSL {
		c.logs[key] = []byte(fmt.Sprintf("ERROR: the %s front end is not available in this driver build", language))
		return false
	}
	if len(source) == 0 {
		c.logs[key] = []byte("ERROR: no shader source bound")
		return false
	}

	// The stored source carries a NUL sentinel; naga wants plain text.
	text := string(bytes.TrimRight(source, "\x00"))

	if c.dumpEnabled {
		c.dumpSource(text, stage, language)
	}

	spirv, err := naga.Compile(text)
	if err != nil {
		c.logs[key] = []byte(err.Error())
		return false
	}

	c.streams[key] = packWords(spirv)
	c.logs[key] = nil
	return true
}

func (c *WGSLCompiler) InfoLog(stage Stage, language Language) []byte {
	return c.logs[resultKey{stage: stage, language: language}]
}

// InstructionStream returns the SPIR-V word stream produced by the most
// recent successful Compile for the pair, or nil.
func (c *WGSLCompiler) InstructionStream(stage Stage, language Language) []uint32 {
	return c.streams[resultKey{stage: stage, language: language}]
}

func (c *WGSLCompiler) EnableSourceDump() {
	c.dumpEnabled = true
}

func (c *WGSLCompiler) dumpSource(text string, stage Stage, language Language) {
	name := fmt.Sprintf("shader_%s_%s_%s.wgsl", stage, language, uuid.New().String())
	path := filepath.Join(c.dumpDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		core.LogWarn("unable to dump shader source to %s: %s", path, err.Error())
	}
}

// packWords reassembles the little-endian SPIR-V byte stream into the
// 32-bit words the native module creation consumes.
func packWords(spirv []byte) []uint32 {
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words
}
