// Command sign_initdata prints a correctly signed initData string for local
// testing of the auth endpoint without a Telegram client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"boostclics/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	id := flag.Int64("id", 1234567890, "telegram user id")
	firstName := flag.String("first-name", "Tester", "user first_name")
	username := flag.String("username", "testuser", "user username")
	authDate := flag.Int64("auth-date", time.Now().Unix(), "auth_date unix seconds")
	flag.Parse()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN not set")
	}

	user, err := json.Marshal(map[string]any{
		"id":         *id,
		"first_name": *firstName,
		"username":   *username,
	})
	if err != nil {
		log.Fatalf("marshal user: %v", err)
	}

	initData := telegram.SignedInitData(telegram.Pairs{
		{Key: "auth_date", Value: strconv.FormatInt(*authDate, 10)},
		{Key: "user", Value: string(user)},
	}, botToken)

	// verify read
	if _, err := telegram.NewVerifier(botToken).Verify(initData); err != nil {
		log.Fatalf("self-check failed: %v", err)
	}

	fmt.Println(initData)
}
