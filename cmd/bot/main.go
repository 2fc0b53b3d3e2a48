package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"homecraft.ai/internal/protocol"
)

// bot connects one account, enters its own residence and keeps furnishing it.
func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		account   = flag.Int64("account", 1, "account id")
		name      = flag.String("name", "bot", "character name")
		residence = flag.Int("residence", 62000000, "residence map id")
		itemID    = flag.Int("item", 50100001, "item to place")
		every     = flag.Duration("every", 2*time.Second, "placement interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AccountID:       *account,
		CharacterName:   *name,
		MapID:           *residence,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	tick := time.NewTicker(*every)
	defer tick.Stop()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	size := 0
	seq := 0

	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				logger.Printf("WELCOME session=%s map=%d items=%.12s", w.SessionID, w.MapID, w.Catalogs.ItemsDigest)
			case protocol.TypeSnapshot:
				var s protocol.SnapshotMsg
				if err := json.Unmarshal(msg, &s); err != nil {
					continue
				}
				size = s.Size
				logger.Printf("SNAPSHOT home=%d size=%d cubes=%d", s.HomeID, s.Size, len(s.Cubes))
			case protocol.TypeError, protocol.TypeNotice:
				logger.Printf("%s", msg)
			}
		case <-tick.C:
			if size == 0 {
				continue
			}
			seq++
			// homes extend from the origin towards negative x and y
			pos := [3]int{-r.Intn(size), -r.Intn(size), 1}
			req := protocol.RequestMsg{
				Type:            protocol.TypeRequest,
				ProtocolVersion: protocol.Version,
				ID:              fmt.Sprintf("place_%d", seq),
				Op:              protocol.OpAddCube,
				ItemID:          *itemID,
				Pos:             &pos,
				Rotation:        90 * r.Intn(4),
			}
			if err := conn.WriteJSON(req); err != nil {
				logger.Printf("send: %v", err)
				return
			}
		}
	}
}
