package main

import (
	"log"

	"github.com/UmangBid/SagaPay/components/provider/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(); err != nil {
		log.Fatalf("provider adapter exited: %v", err)
	}
}
