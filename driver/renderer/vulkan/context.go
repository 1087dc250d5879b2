package vulkan

import (
	vk "github.com/goki/vulkan"
)

// API is the slice of the native API the resource managers touch.
// Production code goes through nativeAPI; tests substitute a recording
// implementation so descriptors and commands can be inspected without a
// live device.
type API interface {
	CreateShaderModule(device vk.Device, createInfo *vk.ShaderModuleCreateInfo, allocator *vk.AllocationCallbacks) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule, allocator *vk.AllocationCallbacks)
	CreateRenderPass(device vk.Device, createInfo *vk.RenderPassCreateInfo, allocator *vk.AllocationCallbacks) (vk.RenderPass, vk.Result)
	DestroyRenderPass(device vk.Device, renderPass vk.RenderPass, allocator *vk.AllocationCallbacks)
	CmdBeginRenderPass(commandBuffer vk.CommandBuffer, beginInfo *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(commandBuffer vk.CommandBuffer)
}

// Context holds the native device state shared by every resource. It is
// owned by the device layer; resources only read it. Creation and
// destruction against the same device must be serialized by the owner.
type Context struct {
	Device    vk.Device
	Allocator *vk.AllocationCallbacks
	API       API
}

func NewContext(device vk.Device, allocator *vk.AllocationCallbacks) *Context {
	return &Context{
		Device:    device,
		Allocator: allocator,
		API:       nativeAPI{},
	}
}

type nativeAPI struct{}

func (nativeAPI) CreateShaderModule(device vk.Device, createInfo *vk.ShaderModuleCreateInfo, allocator *vk.AllocationCallbacks) (vk.ShaderModule, vk.Result) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(device, createInfo, allocator, &module)
	return module, res
}

func (nativeAPI) DestroyShaderModule(device vk.Device, module vk.ShaderModule, allocator *vk.AllocationCallbacks) {
	vk.DestroyShaderModule(device, module, allocator)
}

func (nativeAPI) CreateRenderPass(device vk.Device, createInfo *vk.RenderPassCreateInfo, allocator *vk.AllocationCallbacks) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(device, createInfo, allocator, &renderPass)
	return renderPass, res
}

func (nativeAPI) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass, allocator *vk.AllocationCallbacks) {
	vk.DestroyRenderPass(device, renderPass, allocator)
}

func (nativeAPI) CmdBeginRenderPass(commandBuffer vk.CommandBuffer, beginInfo *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(commandBuffer, beginInfo, contents)
}

func (nativeAPI) CmdEndRenderPass(commandBuffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer)
}
