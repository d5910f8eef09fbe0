package world

import (
	"context"
	"errors"
	"image"
	"time"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/render"
)

var ErrStopped = errors.New("world stopped")

type commandReq struct {
	cmd  observerproto.CommandMsg
	resp chan observerproto.CommandResultMsg
}

type infoReq struct {
	resp chan observerproto.BootstrapResponse
}

type frameReq struct {
	width  int
	height int
	resp   chan *image.RGBA
}

// Run steps the world at the profile's tick rate until ctx is done or Stop is
// called. Every tick advances the simulation clock by exactly one interval.
func (w *World) Run(ctx context.Context) error {
	interval := w.cfg.Tuning.TickInterval()
	if interval <= 0 {
		interval = time.Second / 30
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.cmds:
			req.resp <- w.Apply(ctx, req.cmd)
		case req := <-w.info:
			req.resp <- w.Bootstrap()
		case req := <-w.frames:
			req.resp <- w.RenderFrame(req.width, req.height)
		case <-ticker.C:
			w.Step(interval)
			w.maybeAutosave(ctx)
		}
	}
}

func (w *World) Stop() {
	if w.stopOnce.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

func (w *World) maybeAutosave(ctx context.Context) {
	if w.saveEvery <= 0 || w.clock-w.lastSave < w.saveEvery {
		return
	}
	if _, err := w.Save(ctx); err != nil {
		w.log.Printf("autosave %s: %v", w.cfg.ID, err)
		w.lastSave = w.clock
	}
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

// Submit hands a command to the running loop and waits for its result.
func (w *World) Submit(ctx context.Context, cmd observerproto.CommandMsg) (observerproto.CommandResultMsg, error) {
	resp := make(chan observerproto.CommandResultMsg, 1)
	select {
	case w.cmds <- commandReq{cmd: cmd, resp: resp}:
	case <-w.stop:
		return observerproto.CommandResultMsg{}, ErrStopped
	case <-ctx.Done():
		return observerproto.CommandResultMsg{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-w.stop:
		return observerproto.CommandResultMsg{}, ErrStopped
	case <-ctx.Done():
		return observerproto.CommandResultMsg{}, ctx.Err()
	}
}

// RequestBootstrap asks the running loop for the bootstrap document.
func (w *World) RequestBootstrap(ctx context.Context) (observerproto.BootstrapResponse, error) {
	resp := make(chan observerproto.BootstrapResponse, 1)
	select {
	case w.info <- infoReq{resp: resp}:
	case <-w.stop:
		return observerproto.BootstrapResponse{}, ErrStopped
	case <-ctx.Done():
		return observerproto.BootstrapResponse{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-w.stop:
		return observerproto.BootstrapResponse{}, ErrStopped
	case <-ctx.Done():
		return observerproto.BootstrapResponse{}, ctx.Err()
	}
}

// RequestFrame asks the running loop to render the current view. Zero sizes
// use the profile viewport.
func (w *World) RequestFrame(ctx context.Context, width, height int) (*image.RGBA, error) {
	resp := make(chan *image.RGBA, 1)
	select {
	case w.frames <- frameReq{width: width, height: height, resp: resp}:
	case <-w.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case img := <-resp:
		return img, nil
	case <-w.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const maxFrameSide = 2048

// RenderFrame draws the current camera view.
func (w *World) RenderFrame(width, height int) *image.RGBA {
	vp := w.cfg.Tuning.Viewport
	if width <= 0 {
		width = vp.Width
	}
	if height <= 0 {
		height = vp.Height
	}
	if width > maxFrameSide {
		width = maxFrameSide
	}
	if height > maxFrameSide {
		height = maxFrameSide
	}
	v := render.View{X: w.camera.X, Y: w.camera.Y, Scale: w.camera.Scale, Width: width, Height: height}
	return w.compositor.Frame(v, w.chunks, w.fog, w.fleet.All(), w.town.Buildings)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
