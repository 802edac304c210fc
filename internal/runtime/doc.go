// Package runtime wires Pebble storage and the eventlog/namespace facades
// into a single in-process node. It backs internal/testutil/fakeserver, the
// stand-in for the remote log cluster used by the gRPC wire client's
// integration tests; production mswriter code never imports this package.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	log, _ := rt.OpenLog("default", "orders", 0)
//	_, _ = log.Append(context.Background(), []eventlog.AppendRecord{{Payload: []byte("hello")}})
package runtime
