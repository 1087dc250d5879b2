package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/glacier/driver/core"
)

// fakeAPI records every native call so descriptors and command order
// can be asserted without a device.
type fakeAPI struct {
	createResult vk.Result

	createdInfos    []vk.RenderPassCreateInfo
	createdHandles  []vk.RenderPass
	destroyed       []vk.RenderPass
	beginInfos      []vk.RenderPassBeginInfo
	beginContents   []vk.SubpassContents
	endCount        int
	destroyedBefore int // destroy calls seen before the latest create
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{createResult: vk.Success}
}

// fakeHandleSlots backs the fake handles the API hands out. Handles are
// notinheap cgo pointer types, so they must not point into the Go heap;
// package-level storage lives in the data segment and satisfies that.
var fakeHandleSlots [64]byte
var nextFakeHandle int

func newFakeHandle() unsafe.Pointer {
	p := unsafe.Pointer(&fakeHandleSlots[nextFakeHandle%len(fakeHandleSlots)])
	nextFakeHandle++
	return p
}

func (f *fakeAPI) CreateShaderModule(vk.Device, *vk.ShaderModuleCreateInfo, *vk.AllocationCallbacks) (vk.ShaderModule, vk.Result) {
	return nil, vk.Success
}

func (f *fakeAPI) DestroyShaderModule(vk.Device, vk.ShaderModule, *vk.AllocationCallbacks) {}

func (f *fakeAPI) CreateRenderPass(_ vk.Device, createInfo *vk.RenderPassCreateInfo, _ *vk.AllocationCallbacks) (vk.RenderPass, vk.Result) {
	if f.createResult != vk.Success {
		return nil, f.createResult
	}
	f.createdInfos = append(f.createdInfos, *createInfo)
	f.destroyedBefore = len(f.destroyed)
	handle := vk.RenderPass(newFakeHandle())
	f.createdHandles = append(f.createdHandles, handle)
	return handle, vk.Success
}

func (f *fakeAPI) DestroyRenderPass(_ vk.Device, renderPass vk.RenderPass, _ *vk.AllocationCallbacks) {
	f.destroyed = append(f.destroyed, renderPass)
}

func (f *fakeAPI) CmdBeginRenderPass(_ vk.CommandBuffer, beginInfo *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	f.beginInfos = append(f.beginInfos, *beginInfo)
	f.beginContents = append(f.beginContents, contents)
}

func (f *fakeAPI) CmdEndRenderPass(vk.CommandBuffer) {
	f.endCount++
}

func newTestContext(api API) *Context {
	ctx := NewContext(nil, nil)
	ctx.API = api
	return ctx
}

func TestLayoutColorOnly(t *testing.T) {
	rp := NewRenderPass(newTestContext(newFakeAPI()))

	attachments, subpass := rp.layout(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined)

	require.Len(t, attachments, 1)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, attachments[0].Format)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, attachments[0].FinalLayout)

	assert.Equal(t, uint32(1), subpass.ColorAttachmentCount)
	require.Len(t, subpass.PColorAttachments, 1)
	assert.Equal(t, uint32(0), subpass.PColorAttachments[0].Attachment)
	assert.Nil(t, subpass.PDepthStencilAttachment)
}

func TestLayoutDepthStencilOnly(t *testing.T) {
	rp := NewRenderPass(newTestContext(newFakeAPI()))

	attachments, subpass := rp.layout(vk.FormatUndefined, vk.FormatD24UnormS8Uint)

	require.Len(t, attachments, 1)
	assert.Equal(t, vk.FormatD24UnormS8Uint, attachments[0].Format)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, attachments[0].FinalLayout)

	assert.Equal(t, uint32(0), subpass.ColorAttachmentCount)
	assert.Empty(t, subpass.PColorAttachments)
	require.NotNil(t, subpass.PDepthStencilAttachment)
	assert.Equal(t, uint32(0), subpass.PDepthStencilAttachment.Attachment)
}

func TestLayoutBothAttachments(t *testing.T) {
	rp := NewRenderPass(newTestContext(newFakeAPI()))

	attachments, subpass := rp.layout(vk.FormatB8g8r8a8Unorm, vk.FormatD24UnormS8Uint)

	require.Len(t, attachments, 2)
	assert.Equal(t, uint32(0), subpass.PColorAttachments[0].Attachment)
	require.NotNil(t, subpass.PDepthStencilAttachment)
	assert.Equal(t, uint32(1), subpass.PDepthStencilAttachment.Attachment)
}

func TestLayoutDefaultOps(t *testing.T) {
	rp := NewRenderPass(newTestContext(newFakeAPI()))

	attachments, _ := rp.layout(vk.FormatB8g8r8a8Unorm, vk.FormatD24UnormS8Uint)

	color, depthStencil := attachments[0], attachments[1]
	assert.Equal(t, vk.AttachmentLoadOpDontCare, color.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, color.StoreOp)
	assert.Equal(t, vk.AttachmentLoadOpDontCare, depthStencil.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, depthStencil.StoreOp)
	assert.Equal(t, vk.AttachmentLoadOpDontCare, depthStencil.StencilLoadOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, depthStencil.StencilStoreOp)
}

func TestLayoutHonorsFlagToggles(t *testing.T) {
	rp := NewRenderPass(newTestContext(newFakeAPI()))
	rp.SetColorClearEnabled(true)
	rp.SetColorWriteEnabled(false)
	rp.SetStencilClearEnabled(true)
	rp.SetStencilWriteEnabled(true)
	rp.SetDepthWriteEnabled(false)

	attachments, _ := rp.layout(vk.FormatB8g8r8a8Unorm, vk.FormatD24UnormS8Uint)

	color, depthStencil := attachments[0], attachments[1]
	assert.Equal(t, vk.AttachmentLoadOpClear, color.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, color.StoreOp)
	assert.Equal(t, vk.AttachmentLoadOpClear, depthStencil.StencilLoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, depthStencil.StencilStoreOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, depthStencil.StoreOp)
}

func TestCreateSubmitsSingleSubpassNoDependencies(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))

	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined))
	require.NotNil(t, rp.Handle)

	require.Len(t, api.createdInfos, 1)
	info := api.createdInfos[0]
	assert.Equal(t, uint32(1), info.AttachmentCount)
	assert.Equal(t, uint32(1), info.SubpassCount)
	assert.Equal(t, uint32(0), info.DependencyCount)
	assert.Equal(t, vk.PipelineBindPointGraphics, info.PSubpasses[0].PipelineBindPoint)
}

func TestRecreateDestroysPreviousHandle(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))

	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined))
	first := rp.Handle
	require.NoError(t, rp.Create(vk.FormatR8g8b8a8Unorm, vk.FormatUndefined))

	require.Len(t, api.destroyed, 1)
	assert.Equal(t, first, api.destroyed[0])
	// The old handle went away before the new create was submitted.
	assert.Equal(t, 1, api.destroyedBefore)
	// Compare as raw pointers: DeepEqual dereferences handle types and the
	// opaque pointees always match, so identity is the meaningful check.
	assert.NotEqual(t, unsafe.Pointer(first), unsafe.Pointer(rp.Handle))
}

func TestCreateOutOfMemoryLeavesHandleAbsent(t *testing.T) {
	api := newFakeAPI()
	api.createResult = vk.ErrorOutOfDeviceMemory
	rp := NewRenderPass(newTestContext(api))

	err := rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined)
	assert.ErrorIs(t, err, core.ErrOutOfDeviceMemory)
	assert.Nil(t, rp.Handle)

	api.createResult = vk.ErrorOutOfHostMemory
	err = rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined)
	assert.ErrorIs(t, err, core.ErrOutOfHostMemory)
	assert.Nil(t, rp.Handle)
}

func TestCreateUnexpectedResultPanics(t *testing.T) {
	api := newFakeAPI()
	api.createResult = vk.ErrorInitializationFailed
	rp := NewRenderPass(newTestContext(api))

	require.Panics(t, func() {
		_ = rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined)
	})
}

func TestBeginRecordsClearValuesAndOpensScope(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))
	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatD24UnormS8Uint))

	cmd := NewCommandBuffer(nil)
	area := vk.Rect2D{Extent: vk.Extent2D{Width: 640, Height: 480}}
	rp.Begin(cmd, nil, area, [4]float32{0, 0, 0, 1}, 1.0, 0)

	require.Len(t, api.beginInfos, 1)
	info := api.beginInfos[0]
	assert.Equal(t, rp.Handle, info.RenderPass)
	assert.Equal(t, uint32(2), info.ClearValueCount)
	assert.Len(t, info.PClearValues, 2)
	assert.Equal(t, vk.SubpassContentsSecondaryCommandBuffers, api.beginContents[0])
	assert.True(t, rp.Started())
	assert.Equal(t, COMMAND_BUFFER_STATE_IN_RENDER_PASS, cmd.State)
}

func TestDoubleBeginPanics(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))
	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined))

	cmd := NewCommandBuffer(nil)
	rp.Begin(cmd, nil, vk.Rect2D{}, [4]float32{}, 1.0, 0)
	require.Panics(t, func() {
		rp.Begin(cmd, nil, vk.Rect2D{}, [4]float32{}, 1.0, 0)
	})
}

func TestEndClosesOpenScopeOnce(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))
	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined))

	cmd := NewCommandBuffer(nil)
	rp.Begin(cmd, nil, vk.Rect2D{}, [4]float32{}, 1.0, 0)
	rp.End(cmd)

	assert.Equal(t, 1, api.endCount)
	assert.False(t, rp.Started())
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING, cmd.State)

	rp.End(cmd)
	assert.Equal(t, 1, api.endCount)
}

func TestEndWithoutBeginIsNoOp(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))

	cmd := NewCommandBuffer(nil)
	cmd.State = COMMAND_BUFFER_STATE_READY
	rp.End(cmd)

	assert.Zero(t, api.endCount)
	assert.False(t, rp.Started())
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, cmd.State)
}

func TestReleaseIsIdempotentAndKeepsScopeFlag(t *testing.T) {
	api := newFakeAPI()
	rp := NewRenderPass(newTestContext(api))
	require.NoError(t, rp.Create(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined))

	cmd := NewCommandBuffer(nil)
	rp.Begin(cmd, nil, vk.Rect2D{}, [4]float32{}, 1.0, 0)

	rp.Release()
	rp.Release()

	assert.Len(t, api.destroyed, 1)
	assert.Nil(t, rp.Handle)
	assert.True(t, rp.Started())
}
