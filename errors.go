package mullion

import "errors"

// ErrWindowNotFound is returned when a window id is not in the registry.
var ErrWindowNotFound = errors.New("window not found")

// ErrSlotOutOfRange is returned when a container slot index is out of range.
var ErrSlotOutOfRange = errors.New("slot index out of range")

// ErrGroupEmpty is returned when operating on a tab group with no members.
var ErrGroupEmpty = errors.New("tab group is empty")

// ErrAlreadyAttached is returned when attaching a window that is already in
// a container or tab group.
var ErrAlreadyAttached = errors.New("window already attached to an arrangement")

// ErrProviderFactoryUnknown is returned when a hot-swap names a provider
// factory that was never registered.
var ErrProviderFactoryUnknown = errors.New("unknown provider factory")

// ErrContextDisposed is returned when a frame context is used after Dispose.
var ErrContextDisposed = errors.New("frame context disposed")

// ErrMidFrame is returned when an operation that must happen between frames
// is attempted while a frame is open.
var ErrMidFrame = errors.New("operation not allowed mid-frame")

// ErrLoopStopped is returned when posting work to a compositor whose
// scheduling loop has shut down.
var ErrLoopStopped = errors.New("scheduling loop stopped")

// ErrStopTimeout is returned when a render loop does not acknowledge a stop
// request within the configured deadline.
var ErrStopTimeout = errors.New("render loop stop timed out")
