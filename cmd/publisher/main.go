package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Mock tracker ping publisher for local testing: a small pool of field
// trackers drifts in and out of a zone so the server produces real
// enter/exit transitions.

type pingMessage struct {
	TrackerID string  `json:"tracker_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Accuracy  float64 `json:"accuracy"`
	Battery   float64 `json:"battery"`
}

const (
	zoneLat = 25.6866
	zoneLng = -100.3161
)

var trackerPool = []string{"SUP01", "SUP02", "SUP03", "SUP04", "SUP05"}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("tracking-mock-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.Printf("connected to %s, publishing every %ds...", broker, intervalSec)
	log.Printf("tracker pool: %v", trackerPool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		tid := trackerPool[rand.Intn(len(trackerPool))]

		var lat, lng float64
		// 50% chance to report near the zone center (~50m drift),
		// otherwise a few kilometers away so visits open and close.
		if rand.Float64() < 0.5 {
			lat = zoneLat + (rand.Float64()-0.5)*0.0005
			lng = zoneLng + (rand.Float64()-0.5)*0.0005
		} else {
			lat = zoneLat + (rand.Float64()-0.5)*0.1
			lng = zoneLng + (rand.Float64()-0.5)*0.1
		}

		msg := pingMessage{
			TrackerID: tid,
			Latitude:  lat,
			Longitude: lng,
			Timestamp: time.Now().Unix(),
			Accuracy:  5 + rand.Float64()*30,
			Battery:   20 + rand.Float64()*80,
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("/field/tracker/%s/location", tid)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
