package world

import (
	"context"
	"errors"
	"fmt"

	"fjordcraft.ai/internal/observerproto"
	"fjordcraft.ai/internal/sim/economy"
	"fjordcraft.ai/internal/sim/terrain/gen"
)

var (
	ErrNoScouts       = errors.New("no scouts available")
	ErrUnknownCommand = errors.New("unknown command")
)

// MoveCamera places the top-left corner of the view at (x, y). Chunks follow
// on the next Step.
func (w *World) MoveCamera(x, y float64) {
	w.camera.X = x
	w.camera.Y = y
}

// SetZoom clamps scale to [MinZoom, MaxZoom] and returns the applied value.
func (w *World) SetZoom(scale float64) float64 {
	w.camera.Scale = gen.Clamp(scale, MinZoom, MaxZoom)
	return w.camera.Scale
}

// ScreenToWorld converts a viewport pixel position to world coordinates.
func (w *World) ScreenToWorld(sx, sy float64) gen.Vec2 {
	s := w.camera.Scale
	if s <= 0 {
		s = 1
	}
	return gen.Vec2{X: w.camera.X + sx/s, Y: w.camera.Y + sy/s}
}

// SendScout dispatches a scout toward pos. id 0 selects the oldest scout.
func (w *World) SendScout(id int, pos gen.Vec2) (int, error) {
	if id == 0 {
		first, ok := w.fleet.First()
		if !ok {
			w.notify("No scouts available!")
			return 0, ErrNoScouts
		}
		id = first
	}
	if err := w.fleet.AssignTarget(id, pos); err != nil {
		return 0, err
	}
	w.notify("Scout dispatched to explore!")
	return id, nil
}

// PlaceBuilding builds kind at pos when affordable and the site is free.
func (w *World) PlaceBuilding(kind string, pos gen.Vec2) (economy.BuildingData, error) {
	d, err := w.town.Place(kind, pos, w.chunks, w.clock)
	switch {
	case errors.Is(err, economy.ErrInsufficientResources):
		w.notify("Not enough resources!")
		return d, err
	case errors.Is(err, economy.ErrInvalidPlacement):
		w.notify("Invalid placement location!")
		return d, err
	case err != nil:
		return d, err
	}
	w.notify(fmt.Sprintf("%s built!", d.Name))
	w.emit(Event{Type: EventBuildingPlaced, Building: kind, X: pos.X, Y: pos.Y})
	return d, nil
}

// Apply executes one observer command against the world. It must run on the
// world goroutine.
func (w *World) Apply(ctx context.Context, cmd observerproto.CommandMsg) observerproto.CommandResultMsg {
	res := observerproto.CommandResultMsg{
		Type:            "COMMAND_RESULT",
		ProtocolVersion: observerproto.Version,
		ID:              cmd.ID,
		Command:         cmd.Command,
	}
	var err error
	switch cmd.Command {
	case "send_scout":
		var id int
		id, err = w.SendScout(cmd.ScoutID, gen.Vec2{X: cmd.X, Y: cmd.Y})
		if err == nil {
			res.Message = fmt.Sprintf("scout %d dispatched", id)
		}
	case "move_camera":
		w.MoveCamera(cmd.X, cmd.Y)
		if cmd.Scale > 0 {
			w.SetZoom(cmd.Scale)
		}
	case "set_zoom":
		res.Message = fmt.Sprintf("zoom %.2f", w.SetZoom(cmd.Scale))
	case "place_building":
		var d economy.BuildingData
		d, err = w.PlaceBuilding(cmd.Building, gen.Vec2{X: cmd.X, Y: cmd.Y})
		if err == nil {
			res.Message = d.Name
		}
	case "save":
		_, err = w.Save(ctx)
	case "reset":
		err = w.Reset(ctx)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}
