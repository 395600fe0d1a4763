// Command devtoken mints an access token for local testing.  Accounts live
// in an external identity service; this only signs the claims the API
// checks.
package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"

    "github.com/iliyamo/bus-seat-reservation/internal/utils"
)

func main() {
    _ = godotenv.Load()

    subject := flag.String("sub", "1", "user id placed in the token subject")
    role := flag.String("role", "CUSTOMER", "CUSTOMER or ADMIN")
    ttl := flag.Duration("ttl", time.Hour, "token lifetime")
    flag.Parse()

    secret := os.Getenv("JWT_SECRET")
    if secret == "" {
        log.Fatal("JWT_SECRET is not set")
    }
    tok, err := utils.NewAccessToken(secret, *subject, *role, *ttl)
    if err != nil {
        log.Fatal(err)
    }
    fmt.Println(tok.Token)
}
