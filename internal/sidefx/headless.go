package sidefx

import (
	"log/slog"

	"github.com/roach88/puzzlebox/internal/ir"
)

// Headless is a Renderer and Audio that draws and plays nothing. It keeps
// the bookkeeping effects depend on (viewport offset, which streams are
// playing) and logs every request at debug level. The engine uses it when
// no real collaborator is configured.
type Headless struct {
	logger  *slog.Logger
	offset  int
	next    int
	playing map[int]bool
}

// NewHeadless creates a headless collaborator. logger may be nil.
func NewHeadless(logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	return &Headless{logger: logger, playing: make(map[int]bool)}
}

func (h *Headless) handle() int {
	h.next++
	return h.next
}

func (h *Headless) PlayAnimation(file string, rect ir.Rect) (int, error) {
	id := h.handle()
	h.logger.Debug("animation started", "file", file, "handle", id)
	return id, nil
}

func (h *Headless) ShowFrame(int, int) {}

func (h *Headless) StopAnimation(handle int) {
	h.logger.Debug("animation stopped", "handle", handle)
}

func (h *Headless) SetBackground(file string) error {
	h.logger.Debug("background set", "file", file)
	return nil
}

func (h *Headless) ViewportOffset() int { return h.offset }

func (h *Headless) SetViewportOffset(offset int) { h.offset = offset }

func (h *Headless) SetDistortion(float64, float64) {}

func (h *Headless) ResetDistortion() {}

func (h *Headless) ApplyRegionEffect(name string, rect ir.Rect) {
	h.logger.Debug("region effect applied", "effect", name)
}

func (h *Headless) ClearRegionEffect(name string, rect ir.Rect) {
	h.logger.Debug("region effect cleared", "effect", name)
}

func (h *Headless) DrawText(text string, rect ir.Rect) {
	h.logger.Debug("text drawn", "text", text)
}

func (h *Headless) ClearText(ir.Rect) {}

// Play starts a silent stream. Streams play until stopped.
func (h *Headless) Play(file string, loop bool) (int, error) {
	id := h.handle()
	h.playing[id] = true
	h.logger.Debug("stream started", "file", file, "loop", loop, "handle", id)
	return id, nil
}

func (h *Headless) Stop(handle int) {
	delete(h.playing, handle)
}

func (h *Headless) IsPlaying(handle int) bool { return h.playing[handle] }

func (h *Headless) SetVolume(int, int) {}

func (h *Headless) SetBalance(int, int) {}
