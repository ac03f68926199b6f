package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"visitrack.net/visitrack/security"
)

// Mints a token for manual testing. The user variant stands in for the
// admin login flow, which lives outside this service.
func main() {
	kind := flag.String("type", "user", "token type: user or device")
	id := flag.Int("id", 1, "user or station id")
	company := flag.Int("company", 1, "company id")
	role := flag.String("role", "admin", "role for user tokens")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	secret, err := security.DecodeSecret(os.Getenv("JWT_SECRET"))
	if err != nil {
		log.Fatalf("JWT_SECRET: %v", err)
	}

	var token string
	switch *kind {
	case "device":
		token, err = security.CreateDeviceToken(int32(*id), int32(*company), secret, *ttl)
	case "user":
		token, err = security.CreateUserToken(int32(*id), int32(*company), *role, secret, *ttl)
	default:
		log.Fatalf("unknown token type %q", *kind)
	}
	if err != nil {
		log.Fatalf("create token: %v", err)
	}

	fmt.Println(token)
}
