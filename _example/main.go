package main

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

func main() {
	ctx := context.Background()

	loop := transport.NewLoopback()
	engine, err := matchgo.New(loop)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	fmt.Println("--- Subscribe ---")

	res, err := engine.Subscribe(ctx, matchgo.SubscribeRequest{
		Index:      "library",
		Collection: "people",
		Body: map[string]any{
			"and": []any{
				map[string]any{"term": map[string]any{"firstName": "Ada"}},
				map[string]any{"range": map[string]any{"born": map[string]any{"gte": 1800.0}}},
			},
		},
		ConnectionID: "conn-1",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Room:", res.RoomID)
	fmt.Println("Channel:", res.ChannelID)

	fmt.Println("\n--- Dispatch ---")

	doc, err := document.FromMap(map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"born":      1815,
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
	engine.Close()

	for _, d := range loop.Deliveries("conn-1") {
		var n notify.Notification
		if err := codec.Decode(d.Frame, &n); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %s scope=%s result=%v\n", n.Type, n.Action, n.Scope, n.Result)
	}
}
