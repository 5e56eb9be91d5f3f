// Package notify abstracts the local notification platform: schedule by
// fire time, cancel by opaque handle, list what is armed. The in-process
// implementation backs notifications with timers and a delivery sender.
package notify
