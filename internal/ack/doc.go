// Package ack implements the request-acknowledgment correlation engine
// for PickLight Core.
//
// Shelf controllers receive commands over MQTT and reply asynchronously:
// every command frame carries a one-byte acknowledgment id in payload
// byte 0, and the controller echoes that id back on its ack topic for
// the command's class (light or config). This package bridges the two
// execution contexts involved: the caller blocking inside PublishAndWait,
// and the transport's delivery goroutine handing in ack frames.
//
// # Components
//
//   - Registry: in-flight wait entries keyed by (device, id) per class.
//     Register, Match and Expire share one mutex so a racing match and
//     expiry resolve an entry exactly once.
//   - Session: owns the ack subscriptions, allocates ids, publishes
//     command frames and suspends callers until matched or timed out.
//   - The dispatcher (Session.handleAck): decodes inbound frames and
//     matches them against the registry. Malformed frames are logged
//     and dropped; late frames are counted and dropped.
//
// # Correlation Rules
//
//   - At most one live entry per (device, id) per class. Ids are probed
//     from a random starting point and reused freely once resolved.
//   - Whoever removes an entry resolves it: a match that beats the
//     expiry wins, and the caller reports success even when its timer
//     has already fired.
//   - A late or spurious acknowledgment never errors and never touches
//     a newer entry that happens to reuse the same id.
//
// # Usage
//
//	session := ack.NewSession(mqttClient, ack.Options{Logger: logger})
//	if err := session.Start(); err != nil {
//	    return err
//	}
//	defer session.Stop()
//
//	err := session.PublishAndWait(ctx, mac, mqtt.ClassLight,
//	    mqtt.Topics{}.LightAllOn(mac), []byte{255, 0, 0}, 5*time.Second)
//	switch {
//	case errors.Is(err, ack.ErrTimeout):
//	    // controller did not answer in time
//	case errors.Is(err, ack.ErrTransportUnavailable):
//	    // broker connection is down or the id space is exhausted
//	}
package ack
