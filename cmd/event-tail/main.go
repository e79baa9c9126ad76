// Command event-tail prints game notifications from the Kafka topic.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/hundredandten/server/internal/view"
)

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-events", "Kafka topic")
	gameID := flag.String("game", "", "Only print notifications for this game")
	fromBeginning := flag.Bool("from-beginning", false, "Start from the oldest retained message")
	showEvents := flag.Bool("events", false, "Print each event carried by a notification")
	flag.Parse()

	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	partitions, err := consumer.Partitions(*topic)
	if err != nil {
		log.Fatalf("Failed to list partitions of %s: %v", *topic, err)
	}

	offset := sarama.OffsetNewest
	if *fromBeginning {
		offset = sarama.OffsetOldest
	}

	fmt.Printf("Tailing %s (%d partitions) on %s\n", *topic, len(partitions), *brokers)

	var mu sync.Mutex
	var wg sync.WaitGroup
	done := make(chan struct{})

	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(*topic, partition, offset)
		if err != nil {
			log.Fatalf("Failed to consume partition %d: %v", partition, err)
		}

		wg.Add(1)
		go func(pc sarama.PartitionConsumer) {
			defer wg.Done()
			defer pc.Close()
			for {
				select {
				case <-done:
					return
				case err := <-pc.Errors():
					log.Printf("Consumer error: %v", err)
				case msg := <-pc.Messages():
					var n view.Notification
					if err := json.Unmarshal(msg.Value, &n); err != nil {
						log.Printf("Skipping malformed message at %d/%d: %v", msg.Partition, msg.Offset, err)
						continue
					}
					if *gameID != "" && n.GameID != *gameID {
						continue
					}
					mu.Lock()
					printNotification(n, *showEvents)
					mu.Unlock()
				}
			}
		}(pc)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	close(done)
	wg.Wait()
}

func printNotification(n view.Notification, showEvents bool) {
	line := fmt.Sprintf("%s  %-5s %s rev=%d status=%s",
		n.Timestamp.Format("15:04:05.000"), n.Kind, n.GameID, n.Revision, n.Status)
	if n.ActivePlayer != "" {
		line += " active=" + n.ActivePlayer
	}
	if n.Winner != "" {
		line += " winner=" + n.Winner
	}
	fmt.Println(line)

	if !showEvents {
		return
	}
	for _, e := range n.Events {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		fmt.Printf("    %s\n", data)
	}
}
