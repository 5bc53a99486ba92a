package engine

import (
	"fmt"
	"strings"

	"github.com/tracksync/tracksync/internal/core/osc"
)

// Inbound control addresses:
//
//	/track/{id}/xyz    fff  cartesian position
//	/track/{id}/x|y|z  f    single cartesian axis
//	/track/{id}/aed    fff  azimuth, elevation, distance
//	/track/{id}/gain   f    gain in dB
//	/track/{id}/mute   T|F
//	/track/{id}/color  ffff red, green, blue, alpha in [0, 1]
//	/track/{id}/speed  f    playback speed multiplier
//	/animation/{id}/play
//	/animation/{id}/pause
//	/animation/{id}/stop
//	/animation/{id}/reset
//	/get               s    query; replies on the broadcast client
func (e *Engine) routes(s *osc.Server) {
	s.Handle("/track/*/xyz", e.handleXYZ)
	s.Handle("/track/*/x", e.handleAxis(0))
	s.Handle("/track/*/y", e.handleAxis(1))
	s.Handle("/track/*/z", e.handleAxis(2))
	s.Handle("/track/*/aed", e.handleAED)
	s.Handle("/track/*/gain", e.handleGain)
	s.Handle("/track/*/mute", e.handleMute)
	s.Handle("/track/*/color", e.handleColor)
	s.Handle("/track/*/speed", e.handleSpeed)
	s.Handle("/get", e.handleGet)
	s.Handle("/animation/*/play", e.playback(e.Play))
	s.Handle("/animation/*/pause", e.playback(e.Pause))
	s.Handle("/animation/*/stop", e.playback(e.Stop))
	s.Handle("/animation/*/reset", e.playback(e.Stop))
}

// addressID extracts the entity id from a three-segment control address.
func addressID(address string) (string, error) {
	parts := strings.Split(address, "/")
	if len(parts) != 4 || parts[2] == "" {
		return "", fmt.Errorf("%w: cannot extract id from %q", osc.ErrProtocol, address)
	}
	return parts[2], nil
}

// floatArgs requires exactly n numeric arguments. Int32 arguments are
// accepted and widened; anything else is a protocol error.
func floatArgs(m osc.Message, n int) ([]float64, error) {
	if len(m.Args) != n {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d",
			osc.ErrProtocol, m.Address, n, len(m.Args))
	}
	out := make([]float64, n)
	for i, a := range m.Args {
		if f, ok := a.Float(); ok {
			out[i] = float64(f)
			continue
		}
		if v, ok := a.Int(); ok {
			out[i] = float64(v)
			continue
		}
		return nil, fmt.Errorf("%w: %s argument %d is not numeric",
			osc.ErrProtocol, m.Address, i)
	}
	return out, nil
}

func (e *Engine) handleXYZ(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	v, err := floatArgs(m, 3)
	if err != nil {
		return err
	}
	return e.SetParameters(id, osc.Parameters{
		Cartesian: &osc.Cartesian{X: v[0], Y: v[1], Z: v[2]},
	})
}

func (e *Engine) handleAED(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	v, err := floatArgs(m, 3)
	if err != nil {
		return err
	}
	return e.SetParameters(id, osc.Parameters{
		Polar: &osc.Polar{Azimuth: v[0], Elevation: v[1], Distance: v[2]},
	})
}

func (e *Engine) handleGain(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	v, err := floatArgs(m, 1)
	if err != nil {
		return err
	}
	return e.SetParameters(id, osc.Parameters{Gain: &v[0]})
}

func (e *Engine) handleMute(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	if len(m.Args) != 1 {
		return fmt.Errorf("%w: %s expects one boolean argument", osc.ErrProtocol, m.Address)
	}
	muted, ok := m.Args[0].Bool()
	if !ok {
		return fmt.Errorf("%w: %s argument is not a boolean", osc.ErrProtocol, m.Address)
	}
	return e.SetParameters(id, osc.Parameters{Mute: &muted})
}

func (e *Engine) handleColor(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	v, err := floatArgs(m, 4)
	if err != nil {
		return err
	}
	return e.SetParameters(id, osc.Parameters{
		Color: &osc.Color{R: v[0], G: v[1], B: v[2], A: v[3]},
	})
}

func (e *Engine) handleSpeed(m osc.Message) error {
	id, err := addressID(m.Address)
	if err != nil {
		return err
	}
	v, err := floatArgs(m, 1)
	if err != nil {
		return err
	}
	return e.SetParameters(id, osc.Parameters{Speed: &v[0]})
}

// handleAxis updates one cartesian axis, keeping the other two.
func (e *Engine) handleAxis(axis int) osc.Handler {
	return func(m osc.Message) error {
		id, err := addressID(m.Address)
		if err != nil {
			return err
		}
		v, err := floatArgs(m, 1)
		if err != nil {
			return err
		}
		return e.SetAxis(id, axis, v[0])
	}
}

// handleGet answers a query for a track's current position. The single
// string argument names the value to read, e.g. "/track/1/xyz" or
// "/track/1/aed"; the reply goes out on the broadcast client under that
// same address.
func (e *Engine) handleGet(m osc.Message) error {
	if len(m.Args) != 1 {
		return fmt.Errorf("%w: /get expects one string argument", osc.ErrProtocol)
	}
	target, ok := m.Args[0].Str()
	if !ok {
		return fmt.Errorf("%w: /get argument is not a string", osc.ErrProtocol)
	}
	id, err := addressID(target)
	if err != nil {
		return err
	}
	parts := strings.Split(target, "/")
	leaf := parts[len(parts)-1]
	return e.Query(id, leaf, target)
}

func (e *Engine) playback(op func(string) error) osc.Handler {
	return func(m osc.Message) error {
		id, err := addressID(m.Address)
		if err != nil {
			return err
		}
		return op(id)
	}
}
