package app

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// modifierKeys never request termination on their own.
var modifierKeys = map[glfw.Key]bool{
	glfw.KeyLeftShift:    true,
	glfw.KeyRightShift:   true,
	glfw.KeyLeftControl:  true,
	glfw.KeyRightControl: true,
	glfw.KeyLeftAlt:      true,
	glfw.KeyRightAlt:     true,
	glfw.KeyLeftSuper:    true,
	glfw.KeyRightSuper:   true,
	glfw.KeyCapsLock:     true,
	glfw.KeyNumLock:      true,
}

func isTerminationKey(key glfw.Key, action glfw.Action) bool {
	return action == glfw.Press && !modifierKeys[key]
}

// WindowInput latches termination requests from the window's key and mouse
// button callbacks. Events are delivered during Poll.
type WindowInput struct {
	window    *glfw.Window
	terminate bool
}

func NewWindowInput(window *glfw.Window) *WindowInput {
	in := &WindowInput{window: window}
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if isTerminationKey(key, action) {
			in.terminate = true
		}
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			in.terminate = true
		}
	})
	return in
}

func (in *WindowInput) Poll() {
	glfw.PollEvents()
}

func (in *WindowInput) TerminationRequested() bool {
	return in.terminate
}

func (in *WindowInput) CloseRequested() bool {
	return in.window.ShouldClose()
}
