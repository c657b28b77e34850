package main

import (
	"log"

	"github.com/UmangBid/SagaPay/components/ledger/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(); err != nil {
		log.Fatalf("ledger exited: %v", err)
	}
}
