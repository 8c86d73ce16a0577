package graphics

// Surface is the visible drawable a session presents to: a window, or a
// canvas. Sizes are framebuffer pixels.
type Surface interface {
	DrawableSize() (int, int)
	// SetSize requests a new drawable size. The change becomes visible
	// through DrawableSize, possibly on a later call.
	SetSize(width, height int)
	// Present makes the last draw to the surface visible.
	Present()
	Destroy()
}
