package vulkan

import (
	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// CommandBuffer wraps a recorder handle owned by the command submission
// subsystem. Render pass Begin/End move it between the recording and
// in-render-pass states; allocation, submission and synchronization
// happen elsewhere.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

func NewCommandBuffer(handle vk.CommandBuffer) *CommandBuffer {
	return &CommandBuffer{
		Handle: handle,
		State:  COMMAND_BUFFER_STATE_RECORDING,
	}
}
