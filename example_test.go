package matchgo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/matchgo"
	"github.com/hupe1980/matchgo/codec"
	"github.com/hupe1980/matchgo/document"
	"github.com/hupe1980/matchgo/notify"
	"github.com/hupe1980/matchgo/transport"
)

// Example_subscribe demonstrates registering a content subscription.
func Example_subscribe() {
	engine, err := matchgo.New(transport.NewLoopback())
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	res, err := engine.Subscribe(context.Background(), matchgo.SubscribeRequest{
		Index:      "library",
		Collection: "people",
		Body: map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		},
		ConnectionID: "conn-1",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("subscribed:", res.AlreadySubscribed)
	// Output: subscribed: false
}

// Example_dispatch demonstrates routing a mutation to matching subscribers.
func Example_dispatch() {
	ctx := context.Background()
	loop := transport.NewLoopback()

	engine, err := matchgo.New(loop)
	if err != nil {
		log.Fatal(err)
	}

	_, err = engine.Subscribe(ctx, matchgo.SubscribeRequest{
		Index:      "library",
		Collection: "people",
		Body: map[string]any{
			"term": map[string]any{"firstName": "Ada"},
		},
		ConnectionID: "conn-1",
	})
	if err != nil {
		log.Fatal(err)
	}

	doc, err := document.FromMap(map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := engine.Dispatch(ctx, matchgo.MutationEvent{
		Index:      "library",
		Collection: "people",
		Action:     notify.ActionCreate,
		After:      doc,
	}); err != nil {
		log.Fatal(err)
	}
	engine.Close() // drain delivery workers

	for _, d := range loop.Deliveries("conn-1") {
		var n notify.Notification
		if err := codec.Decode(d.Frame, &n); err != nil {
			log.Fatal(err)
		}
		fmt.Println(n.Action, n.Scope)
	}
	// Output: create in
}

// Example_compression demonstrates compressing large notification payloads.
func Example_compression() {
	engine, err := matchgo.New(transport.NewLoopback(),
		matchgo.WithCompression(codec.CompressionZSTD, 4096),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	fmt.Println("engine ready")
	// Output: engine ready
}
