package main

import (
	"log"

	"github.com/UmangBid/SagaPay/components/risk/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(); err != nil {
		log.Fatalf("risk exited: %v", err)
	}
}
