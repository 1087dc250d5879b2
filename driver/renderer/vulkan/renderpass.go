package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/glacier/driver/core"
)

// RenderPass derives a native render pass from the attachment formats
// handed to Create and the six persistent clear/write flags, and tracks
// the begin/end recording scope. At most one native handle is alive per
// object; Create always destroys the previous handle first.
type RenderPass struct {
	Handle          vk.RenderPass
	SubpassContents vk.SubpassContents
	BindPoint       vk.PipelineBindPoint

	colorClearEnabled   bool
	depthClearEnabled   bool
	stencilClearEnabled bool
	colorWriteEnabled   bool
	depthWriteEnabled   bool
	stencilWriteEnabled bool

	started bool
	context *Context
}

func NewRenderPass(context *Context) *RenderPass {
	return &RenderPass{
		context:           context,
		SubpassContents:   vk.SubpassContentsSecondaryCommandBuffers,
		BindPoint:         vk.PipelineBindPointGraphics,
		colorWriteEnabled: true,
		depthWriteEnabled: true,
	}
}

// The flag setters take effect on the next Create; an already-created
// handle and an open scope are unaffected.

func (rp *RenderPass) SetColorClearEnabled(enable bool)   { rp.colorClearEnabled = enable }
func (rp *RenderPass) SetDepthClearEnabled(enable bool)   { rp.depthClearEnabled = enable }
func (rp *RenderPass) SetStencilClearEnabled(enable bool) { rp.stencilClearEnabled = enable }
func (rp *RenderPass) SetColorWriteEnabled(enable bool)   { rp.colorWriteEnabled = enable }
func (rp *RenderPass) SetDepthWriteEnabled(enable bool)   { rp.depthWriteEnabled = enable }
func (rp *RenderPass) SetStencilWriteEnabled(enable bool) { rp.stencilWriteEnabled = enable }

func (rp *RenderPass) Started() bool {
	return rp.started
}

func loadOp(clear bool) vk.AttachmentLoadOp {
	if clear {
		return vk.AttachmentLoadOpClear
	}
	return vk.AttachmentLoadOpDontCare
}

func storeOp(write bool) vk.AttachmentStoreOp {
	if write {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// layout builds the attachment list and the single subpass purely from
// format presence and the current flags. Attachment reference indices
// follow the list's actual contents, so they stay consistent when one
// attachment kind is absent.
func (rp *RenderPass) layout(colorFormat, depthStencilFormat vk.Format) ([]vk.AttachmentDescription, vk.SubpassDescription) {
	attachments := make([]vk.AttachmentDescription, 0, 2)

	subpass := vk.SubpassDescription{
		PipelineBindPoint: rp.BindPoint,
	}

	if colorFormat != vk.FormatUndefined {
		colorAttachment := vk.AttachmentDescription{
			Flags:          0,
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(rp.colorClearEnabled),
			StoreOp:        storeOp(rp.colorWriteEnabled),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		}
		colorAttachment.Deref()

		attachments = append(attachments, colorAttachment)

		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{
			{
				Attachment: uint32(len(attachments) - 1),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			},
		}
	}

	// Depth and stencil share one attachment; their load/store pairs
	// are still derived independently.
	if depthStencilFormat != vk.FormatUndefined {
		depthStencilAttachment := vk.AttachmentDescription{
			Flags:          0,
			Format:         depthStencilFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp(rp.depthClearEnabled),
			StoreOp:        storeOp(rp.depthWriteEnabled),
			StencilLoadOp:  loadOp(rp.stencilClearEnabled),
			StencilStoreOp: storeOp(rp.stencilWriteEnabled),
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthStencilAttachment.Deref()

		attachments = append(attachments, depthStencilAttachment)

		depthStencilReference := vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthStencilReference.Deref()

		subpass.PDepthStencilAttachment = &depthStencilReference
	}

	subpass.InputAttachmentCount = 0
	subpass.PInputAttachments = nil
	subpass.PResolveAttachments = nil
	subpass.PreserveAttachmentCount = 0
	subpass.PPreserveAttachments = nil
	subpass.Deref()

	return attachments, subpass
}

// Create builds the native render pass for the given attachment
// formats, either of which may be vk.FormatUndefined to leave that
// attachment out. Any previous handle is destroyed first. Running out
// of host or device memory is reported as an error with the handle left
// absent; any other native failure is a caller error.
func (rp *RenderPass) Create(colorFormat, depthStencilFormat vk.Format) error {
	rp.Release()

	attachments, subpass := rp.layout(colorFormat, depthStencilFormat)

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		PNext:           nil,
		Flags:           0,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 0,
		PDependencies:   nil,
	}
	createInfo.Deref()

	handle, res := rp.context.API.CreateRenderPass(rp.context.Device, &createInfo, rp.context.Allocator)
	switch res {
	case vk.Success:
		rp.Handle = handle
		return nil
	case vk.ErrorOutOfHostMemory:
		core.LogError("render pass creation failed: out of host memory")
		return core.ErrOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("render pass creation failed: out of device memory")
		return core.ErrOutOfDeviceMemory
	default:
		panic(fmt.Sprintf("render pass creation failed with unexpected result %s", ResultString(res)))
	}
}

// Begin records a begin-render-pass command into the given recorder.
// Both clear slots are always provided; the native API ignores clear
// values for attachments that do not clear on load or do not exist.
// Beginning an already-open scope is a caller error.
func (rp *RenderPass) Begin(commandBuffer *CommandBuffer, framebuffer vk.Framebuffer, renderArea vk.Rect2D,
	clearColor [4]float32, clearDepth float32, clearStencil uint32) {

	if rp.started {
		panic("render pass scope is already open")
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(clearColor[:])
	clearValues[1].SetDepthStencil(clearDepth, clearStencil)

	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.Handle,
		Framebuffer:     framebuffer,
		RenderArea:      renderArea,
		ClearValueCount: 2,
		PClearValues:    clearValues,
	}
	beginInfo.Deref()

	rp.context.API.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, rp.SubpassContents)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS

	rp.started = true
}

// End closes the open scope. Without a matching Begin it is a no-op.
func (rp *RenderPass) End(commandBuffer *CommandBuffer) {
	if !rp.started {
		return
	}
	rp.started = false

	rp.context.API.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

// Release destroys the native handle. It does not touch the recording
// scope flag.
func (rp *RenderPass) Release() {
	if rp.Handle != nil {
		rp.context.API.DestroyRenderPass(rp.context.Device, rp.Handle, rp.context.Allocator)
		rp.Handle = nil
	}
}
