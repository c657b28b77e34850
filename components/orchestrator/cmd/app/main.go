package main

import (
	"log"

	"github.com/UmangBid/SagaPay/components/orchestrator/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(); err != nil {
		log.Fatalf("orchestrator exited: %v", err)
	}
}
