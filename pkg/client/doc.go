// Package client is the public Go SDK for the orchestration API: create
// and poll task/flow runs, propose state transitions, and subscribe to
// the live WebSocket event stream. It wraps internal/orchestration with
// a friendlier facade, plus the event stream.
//
// # Basic Usage
//
//	c, err := client.New("http://localhost:4200/api")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := c.CreateTaskRun(ctx, "send-email", nil)
//
// # WebSocket Events
//
//	err := c.ConnectWebSocket(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("Event: %s\n", event.Type)
//	}
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c, err := client.New("http://localhost:4200/api",
//	    client.WithAPIKey("your-api-key"),
//	    client.WithTimeout(30 * time.Second),
//	)
package client
