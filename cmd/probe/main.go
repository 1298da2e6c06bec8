package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"nimbusadmin/internal/service"
	"time"
)

// Standalone reachability check against a NimbusDB endpoint, useful when
// diagnosing a profile without going through the HTTP API.
func main() {
	host := flag.String("host", "127.0.0.1", "Target host")
	port := flag.Int("port", 3306, "Target port")
	user := flag.String("user", "root", "Username")
	password := flag.String("password", "", "Password")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := service.TestConnection(ctx, *host, *port, *user, *password)
	if err != nil {
		log.Fatalf("Probe failed: %v", err)
	}

	fmt.Printf("Connection to %s:%d OK (%d row(s))\n", *host, *port, len(rows))
}
