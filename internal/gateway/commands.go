package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/picklight-core/internal/ack"
	"github.com/nerrad567/picklight-core/internal/audit"
	"github.com/nerrad567/picklight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

// =============================================================================
// Light Commands
// =============================================================================

// TurnOn lights every LED of a stored position in the given colour.
// The command body is the position's LED indices followed by the three
// colour bytes.
func (g *Gateway) TurnOn(ctx context.Context, number, positionID int, color string) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	if err := shelf.ValidatePositionID(positionID); err != nil {
		return err
	}
	if !g.registry.PositionExists(number, positionID) {
		return fmt.Errorf("%w: position %d on shelf %d", shelf.ErrPositionNotFound, positionID, number)
	}
	c, err := ParseColor(color)
	if err != nil {
		return err
	}
	leds, err := g.registry.LEDs(number, positionID)
	if err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightSet(mac), "turn_on", lightBody(leds, c), g.commandTimeout)
}

// TurnOff switches every LED of a stored position off.
func (g *Gateway) TurnOff(ctx context.Context, number, positionID int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	if err := shelf.ValidatePositionID(positionID); err != nil {
		return err
	}
	if !g.registry.PositionExists(number, positionID) {
		return fmt.Errorf("%w: position %d on shelf %d", shelf.ErrPositionNotFound, positionID, number)
	}
	leds, err := g.registry.LEDs(number, positionID)
	if err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightUnset(mac), "turn_off", ledBytes(leds), g.commandTimeout)
}

// TurnOnAll lights every stored position of a shelf in the given
// colour. The controller resolves the LED ranges itself; the body is
// just the colour.
func (g *Gateway) TurnOnAll(ctx context.Context, number int, color string) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	c, err := ParseColor(color)
	if err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightAllOn(mac), "turn_on_all", c[:], g.commandTimeout)
}

// TurnOffAll switches every stored position of a shelf off.
func (g *Gateway) TurnOffAll(ctx context.Context, number int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightAllOff(mac), "turn_off_all", nil, g.commandTimeout)
}

// SetLEDs lights an arbitrary LED range on a controller, addressed by
// MAC and independent of stored positions. An empty range is allowed
// and reaches the controller as a colour-only frame.
func (g *Gateway) SetLEDs(ctx context.Context, mac string, leds []int, color string) error {
	if !g.registry.ControllerExists(mac) {
		return fmt.Errorf("%w: %s", shelf.ErrControllerNotFound, mac)
	}
	if err := shelf.ValidateLEDRange(leds); err != nil {
		return err
	}
	c, err := ParseColor(color)
	if err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightSet(mac), "set_leds", lightBody(leds, c), g.commandTimeout)
}

// UnsetLEDs switches an arbitrary LED range off, addressed by MAC.
func (g *Gateway) UnsetLEDs(ctx context.Context, mac string, leds []int) error {
	if !g.registry.ControllerExists(mac) {
		return fmt.Errorf("%w: %s", shelf.ErrControllerNotFound, mac)
	}
	if err := shelf.ValidateLEDRange(leds); err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassLight, g.topics.LightUnset(mac), "unset_leds", ledBytes(leds), g.commandTimeout)
}

// =============================================================================
// Config Commands
// =============================================================================

// CreatePosition stores a new position on the controller and, once the
// controller has acknowledged it, in the registry. A timeout leaves the
// registry untouched: the controller may or may not have stored the
// position, and the caller is told so.
func (g *Gateway) CreatePosition(ctx context.Context, number, positionID int, leds []int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	pos := shelf.Position{ShelfNumber: number, ID: positionID, LEDs: leds}
	if err := g.registry.CheckNewPosition(number, pos); err != nil {
		return err
	}

	body := positionBody(positionID, leds)
	if err := g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigCreatePosition(mac), "create_position", body, g.commandTimeout); err != nil {
		return err
	}

	return g.registry.AddPosition(ctx, number, pos)
}

// UpdatePosition replaces the LED range of an existing position on the
// controller and, on acknowledgment, in the registry.
func (g *Gateway) UpdatePosition(ctx context.Context, number, positionID int, leds []int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	pos := shelf.Position{ShelfNumber: number, ID: positionID, LEDs: leds}
	if err := g.registry.CheckUpdatedPosition(number, pos); err != nil {
		return err
	}

	body := positionBody(positionID, leds)
	if err := g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigUpdatePosition(mac), "update_position", body, g.commandTimeout); err != nil {
		return err
	}

	return g.registry.UpdatePosition(ctx, number, pos)
}

// DeletePosition removes a position from the controller and, on
// acknowledgment, from the registry.
func (g *Gateway) DeletePosition(ctx context.Context, number, positionID int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	if !g.registry.PositionExists(number, positionID) {
		return fmt.Errorf("%w: position %d on shelf %d", shelf.ErrPositionNotFound, positionID, number)
	}

	body := []byte{byte(positionID)}
	if err := g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigDeletePosition(mac), "delete_position", body, g.commandTimeout); err != nil {
		return err
	}

	return g.registry.DeletePosition(ctx, number, positionID)
}

// ResetController factory-resets a controller, erasing every stored
// position. The MAC is only validated for shape: a reset must work for
// controllers the registry has never seen.
func (g *Gateway) ResetController(ctx context.Context, mac string) error {
	if err := shelf.ValidateMAC(mac); err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigReset(mac), "reset", nil, g.resetTimeout)
}

// DeleteShelf resets the shelf's controller and, once the reset is
// acknowledged, deletes the shelf record. The controller record itself
// survives and becomes available for a new shelf.
func (g *Gateway) DeleteShelf(ctx context.Context, number int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}

	if err := g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigReset(mac), "delete_shelf", nil, g.resetTimeout); err != nil {
		return err
	}

	return g.registry.DeleteShelf(ctx, number)
}

// PullConfig rebinds shelf number to the controller as an empty shelf
// and asks the controller to upload its stored positions. The uploads
// arrive asynchronously on config/put and are applied by the inbound
// handler; the acknowledgment here only confirms the controller took
// the request.
func (g *Gateway) PullConfig(ctx context.Context, mac string, number int) error {
	if !g.registry.ControllerExists(mac) {
		return fmt.Errorf("%w: %s", shelf.ErrControllerNotFound, mac)
	}
	if err := g.registry.RebindShelf(ctx, number, mac); err != nil {
		return err
	}

	return g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigGet(mac), "pull_config", nil, g.commandTimeout)
}

// LoadShelf replays every stored position of a shelf to its controller
// as an update command, one acknowledged exchange per position. A
// timeout does not stop the replay; the returned error reports how many
// positions went unconfirmed.
func (g *Gateway) LoadShelf(ctx context.Context, number int) error {
	mac, err := g.registry.MACForShelf(number)
	if err != nil {
		return err
	}
	positions, err := g.registry.Positions(number)
	if err != nil {
		return err
	}

	timedOut := 0
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ack.ErrTimeout, err)
		}

		body := positionBody(pos.ID, pos.LEDs)
		err := g.exchange(ctx, mac, mqtt.ClassConfig, g.topics.ConfigUpdatePosition(mac), "load_shelf", body, g.commandTimeout)
		switch {
		case err == nil:
		case errors.Is(err, ack.ErrTimeout):
			timedOut++
		default:
			return err
		}
	}

	if timedOut > 0 {
		return fmt.Errorf("%w: %d of %d positions unconfirmed", ack.ErrTimeout, timedOut, len(positions))
	}
	return nil
}

// =============================================================================
// Command Plumbing
// =============================================================================

// exchange runs one acknowledged command: publish the frame, wait for
// the echo, and record the outcome in the audit trail, telemetry, and
// the event hub.
func (g *Gateway) exchange(ctx context.Context, mac, class, topic, operation string, body []byte, timeout time.Duration) error {
	start := time.Now()
	err := g.session.PublishAndWait(ctx, mac, class, topic, body, timeout)
	g.recordOutcome(mac, class, operation, time.Since(start), err)
	return err
}

// recordOutcome classifies a command result and fans it out. Recording
// failures are logged, never returned: the command outcome stands on
// the acknowledgment alone.
func (g *Gateway) recordOutcome(mac, class, operation string, latency time.Duration, err error) {
	outcome := audit.OutcomeAcked
	switch {
	case err == nil:
	case errors.Is(err, ack.ErrTimeout):
		outcome = audit.OutcomeTimeout
	default:
		outcome = audit.OutcomeTransport
	}

	if g.auditLog != nil {
		rec := &audit.Record{
			MAC:       mac,
			Class:     class,
			Operation: operation,
			Outcome:   outcome,
			LatencyMS: latency.Milliseconds(),
		}
		if err != nil {
			rec.Detail = err.Error()
		}

		auditCtx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if aerr := g.auditLog.Create(auditCtx, rec); aerr != nil {
			g.logWarn("audit write failed", "operation", operation, "error", aerr)
		}
		cancel()
	}

	if g.recorder != nil {
		g.recorder.WriteCommandOutcome(mac, class, operation, outcome, latency)
	}

	g.hub.Publish(Event{
		Type:      EventCommandResult,
		MAC:       mac,
		Operation: operation,
		Outcome:   outcome,
		LatencyMS: latency.Milliseconds(),
	})

	switch outcome {
	case audit.OutcomeAcked:
		g.logDebug("command acknowledged", "mac", mac, "operation", operation, "latency", latency)
	case audit.OutcomeTimeout:
		g.logWarn("command timed out", "mac", mac, "operation", operation, "waited", latency)
	default:
		g.logError("command publish failed", "mac", mac, "operation", operation, "error", err)
	}
}

// =============================================================================
// Wire Bodies
// =============================================================================

// ledBytes converts LED indices to their wire form, one byte each.
func ledBytes(leds []int) []byte {
	out := make([]byte, len(leds))
	for i, led := range leds {
		out[i] = byte(led)
	}
	return out
}

// lightBody builds a light/set body: LED indices followed by the three
// colour bytes.
func lightBody(leds []int, c Color) []byte {
	body := make([]byte, 0, len(leds)+len(c))
	for _, led := range leds {
		body = append(body, byte(led))
	}
	return append(body, c[0], c[1], c[2])
}

// positionBody builds a config create/update body: the position id
// followed by its LED indices.
func positionBody(id int, leds []int) []byte {
	body := make([]byte, 0, len(leds)+1)
	body = append(body, byte(id))
	for _, led := range leds {
		body = append(body, byte(led))
	}
	return body
}
