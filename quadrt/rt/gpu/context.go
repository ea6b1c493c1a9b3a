package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/fieldquad"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// Context holds the device, queue and window surface shared by every GPU
// component.
type Context struct {
	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Config   *wgpu.SurfaceConfiguration
}

// NewContext requests a device able to present to window and configures the
// surface to the window's framebuffer size.
func NewContext(window *glfw.Window) (*Context, error) {
	c := &Context{Instance: wgpu.CreateInstance(nil)}

	// wraps GLFW window into a wgpu surface.
	c.Surface = c.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	if c.Surface == nil {
		return nil, fieldquad.Fatalf("create surface", "no surface for window")
	}

	adapter, err := c.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fieldquad.Check("request adapter", err)
	}
	c.Adapter = adapter

	c.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "fieldquad device",
	})
	if err != nil {
		return nil, fieldquad.Check("request device", err)
	}
	c.Queue = c.Device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := c.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return nil, fieldquad.Check("configure surface", errors.New("surface reports no formats"))
	}
	c.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	c.Surface.Configure(adapter, c.Device, c.Config)
	return c, nil
}

// Wait blocks until all submitted work has completed.
func (c *Context) Wait() {
	c.Device.Poll(true, nil)
}

func (c *Context) Release() {
	if c.Device != nil {
		c.Device.Release()
	}
	if c.Adapter != nil {
		c.Adapter.Release()
	}
	if c.Surface != nil {
		c.Surface.Release()
	}
	if c.Instance != nil {
		c.Instance.Release()
	}
}
