package glfwcontext

import (
	"log"
	"runtime"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/glslbench/eventloop"
)

// Context is a GLFW window with an OpenGL 4.1 core context. It implements
// graphics.Surface.
type Context struct {
	window *glfw.Window
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()

	onCursor func(x, y float64)
	onResize func(width, height int)
}

// Config describes the window to open.
type Config struct {
	Width, Height int
	Title         string
	// Resizable lets the user drag the window size; auto resolution specs
	// follow the window.
	Resizable bool
	Visible   bool
}

// New creates and initializes a new GLFW window and makes its context
// current on the calling thread.
func New(cfg Config) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfwBool(cfg.Resizable))
	glfw.WindowHint(glfw.Visible, glfwBool(cfg.Visible))

	title := cfg.Title
	if title == "" {
		title = "glslbench"
	}
	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, title, nil, nil)
	if err != nil {
		return nil, err
	}
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.glfwCursorCallback)
	win.SetFramebufferSizeCallback(c.glfwFramebufferSizeCallback)
	return c, nil
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

// OnCursor registers fn to receive pointer moves in framebuffer pixels,
// origin top-left.
func (c *Context) OnCursor(fn func(x, y float64)) {
	c.onCursor = fn
}

// OnResize registers fn to receive framebuffer size changes.
func (c *Context) OnResize(fn func(width, height int)) {
	c.onResize = fn
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

func (c *Context) glfwCursorCallback(w *glfw.Window, xpos, ypos float64) {
	if c.onCursor == nil {
		return
	}
	scaleX, scaleY := c.contentScale()
	c.onCursor(xpos*scaleX, ypos*scaleY)
}

func (c *Context) glfwFramebufferSizeCallback(w *glfw.Window, width, height int) {
	if c.onResize != nil {
		c.onResize(width, height)
	}
}

// contentScale is the ratio of framebuffer pixels to window coordinates.
func (c *Context) contentScale() (float64, float64) {
	fbWidth, fbHeight := c.window.GetFramebufferSize()
	winWidth, winHeight := c.window.GetSize()
	var scaleX, scaleY float64 = 1.0, 1.0
	if winWidth > 0 && winHeight > 0 {
		scaleX = float64(fbWidth) / float64(winWidth)
		scaleY = float64(fbHeight) / float64(winHeight)
	}
	return scaleX, scaleY
}

func (c *Context) DrawableSize() (int, int) {
	return c.window.GetFramebufferSize()
}

// SetSize resizes the window so that its framebuffer is width x height.
func (c *Context) SetSize(width, height int) {
	scaleX, scaleY := c.contentScale()
	c.window.SetSize(int(float64(width)/scaleX), int(float64(height)/scaleY))
}

func (c *Context) Present() {
	c.window.SwapBuffers()
}

// Destroy destroys the window.
func (c *Context) Destroy() {
	if c.window != nil {
		c.window.Destroy()
		c.window = nil
	}
}

// SetResizable toggles whether the user can resize the window.
func (c *Context) SetResizable(resizable bool) {
	c.window.SetAttrib(glfw.Resizable, glfwBool(resizable))
}

func (c *Context) ShouldClose() bool {
	return c.window == nil || c.window.ShouldClose()
}

// Close asks Run to return.
func (c *Context) Close() {
	if c.window != nil {
		c.window.SetShouldClose(true)
	}
}

// Wake interrupts a blocking event wait. Safe from any goroutine.
func Wake() {
	glfw.PostEmptyEvent()
}

// Run pumps window events and the loop until the window closes. Frame
// requests are paced by the swap interval; otherwise it sleeps until the
// next timer or posted callback.
func (c *Context) Run(loop *eventloop.Loop) {
	for !c.ShouldClose() {
		loop.RunPending()
		if c.ShouldClose() {
			break
		}
		switch {
		case loop.HasFrameRequests():
			loop.VSync()
			glfw.PollEvents()
		case loop.HasPosted():
			glfw.PollEvents()
		default:
			if deadline, ok := loop.NextDeadline(); ok {
				wait := time.Until(deadline)
				if wait <= 0 {
					glfw.PollEvents()
				} else {
					glfw.WaitEventsTimeout(wait.Seconds())
				}
			} else {
				glfw.WaitEvents()
			}
		}
	}
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}
