// Package obix mirrors the sensor values managed by an oBIX gateway
// (e.g. a Can2Go box) onto a downstream event bus, as if the sensors were
// locally attached.
//
// A [Connector] periodically reads the present value of every configured
// point in one batched HTTP/XML request, converts the gateway's typed
// replies into canonical events, and publishes only meaningful changes to an
// [EventSink]: a value is emitted when it is first seen, when it differs from
// the last emitted value, or when the last emission is older than the
// configured TTL. Out-of-bounds values are discarded before gating, and
// gateway-reported per-point errors are logged through a two-tier throttle so
// a persistently broken point cannot flood the log.
//
// The typical lifecycle is:
//
//	cfg, err := config.Load(path)
//	if err != nil { ... }
//
//	conn, err := obix.New(cfg, sink)
//	if err != nil { ... }
//
//	conn.Start()
//	defer conn.Terminate()
//
// Start launches a single worker goroutine driving the polling loop; all
// engine state is owned by that worker. Terminate stops it with a bounded
// wait. Transport failures, protocol errors and per-point faults never stop
// the loop; only Terminate does.
package obix
