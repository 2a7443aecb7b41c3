/*
Package touchstick implements an on-screen virtual joystick: a touch-driven analog control that
draws its knob on its own goroutine and publishes a normalized stick vector to flight-control code.

# Parts

A Joystick is made of three cooperating parts that share one mutex-guarded State:

  - the input mapper (OnTouchDown, OnTouchMove, OnTouchUp) clamps the pointer onto a circle and
    moves the knob;
  - the render loop redraws the knob onto a Surface for as long as the control is visible;
  - the output publisher converts the knob position into a vector in [-1, 1] per axis and hands it
    to the registered Listener on the touch goroutine.

# Lifecycle

The host calls SurfaceChanged once the drawing area has a size, BecameVisible / BecameHidden as the
control is shown and hidden, and Close when it is removed for good. BecameHidden blocks until the
render goroutine has exited, so the host may tear the surface down as soon as it returns.

	js := touchstick.New(touchstick.Options{Surface: surface, Logger: logger})
	js.SetListener(func(x, y float64) { drone.SetSticks(x, y) })
	js.SurfaceChanged(w, h)
	js.BecameVisible()
	defer js.Close()
*/
package touchstick
