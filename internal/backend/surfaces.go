package backend

import "github.com/mirusu400/wie/internal/log"

// Audio, Gfx and Input are intentionally narrow: audio/graphics output
// fidelity is out of scope, so these log what an app asked for instead of
// producing it, the same way the teacher's stub packages log a syscall's
// arguments instead of emulating kernel behavior they don't need.

// Audio backs the WIPI C media method table's clip playback ordinals.
type Audio struct {
	Log *log.Logger
}

func (a *Audio) Play(clipID uint32, volume int) {
	a.Log.Debug("audio play", log.Addr(uint64(clipID)))
}

func (a *Audio) Stop(clipID uint32) {
	a.Log.Debug("audio stop", log.Addr(uint64(clipID)))
}

// Gfx backs the WIPI C graphics method table.
type Gfx struct {
	Log *log.Logger
}

func (g *Gfx) Flush() {
	g.Log.Debug("gfx flush")
}

func (g *Gfx) DrawRect(x, y, w, h int) {
	g.Log.Debug("gfx draw rect")
}

// Input backs key-event delivery into the guest's event queue.
type Input struct {
	Log *log.Logger

	queue []KeyEvent
}

// KeyEvent is a single key press/release an app can poll for.
type KeyEvent struct {
	Code    int
	Pressed bool
}

func (i *Input) Push(e KeyEvent) {
	i.queue = append(i.queue, e)
}

// Poll pops the oldest queued event, reporting false when none remain.
func (i *Input) Poll() (KeyEvent, bool) {
	if len(i.queue) == 0 {
		return KeyEvent{}, false
	}
	e := i.queue[0]
	i.queue = i.queue[1:]
	return e, true
}
