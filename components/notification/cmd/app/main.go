package main

import (
	"log"

	"github.com/UmangBid/SagaPay/components/notification/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(); err != nil {
		log.Fatalf("notification exited: %v", err)
	}
}
