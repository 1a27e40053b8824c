// Package bridge starts and supervises the external serial-to-TCP bridge
// server (esp_rfc2217_server) as a child process.
//
// # Main Types
//
//   - [Controller]: spawns sessions and enforces that at most one is active
//   - [Session]: one running bridge server, with its state machine and stop
//     semantics
//   - [Config]: what to launch (device, TCP port, binary, timeouts)
//   - [State]: the session lifecycle state
//
// # State Machine
//
// A session moves through:
//
//	Stopped → Starting → Running → Stopping → Stopped
//
// An unexpected child exit while Starting or Running moves the session to
// Crashed, which is terminal until a new Start. A child that dies before
// the session ever reaches Running is not handed to the caller at all;
// Start reports the failure and no session remains.
//
// # Thread Safety
//
// [Controller] and [Session] are safe for concurrent use. Stop is
// idempotent and always returns within the configured grace period plus a
// small epsilon, whether or not the child honors the graceful signal.
//
// # Basic Usage
//
//	ctrl := bridge.NewController(logger)
//	out := relay.New(256)
//
//	sess, err := ctrl.Start(ctx, bridge.Config{
//	    Device:  "/dev/ttyUSB0",
//	    TCPPort: 2217,
//	}, out)
//	if err != nil {
//	    return err
//	}
//	defer sess.Stop()
//
//	<-sess.Done()
package bridge
