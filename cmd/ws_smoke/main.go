package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"boostclics/internal/telegram"
)

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN not set")
	}

	frames := flag.Int("frames", 2, "number of frames to read")
	flag.Parse()

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("127.0.0.1:%s", port)

	initData := telegram.SignedInitData(telegram.Pairs{
		{Key: "auth_date", Value: fmt.Sprint(time.Now().Unix())},
		{Key: "user", Value: `{"id":3001,"first_name":"Smoke","username":"smoke"}`},
	}, botToken)

	body, _ := json.Marshal(map[string]string{"initData": initData})
	resp, err := http.Post("http://"+base+"/api/v1/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("auth: status %d", resp.StatusCode)
	}

	var auth struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		log.Fatalf("decode auth: %v", err)
	}

	wsURL := "ws://" + base + "/ws/tasks?token=" + url.QueryEscape(auth.Session.AccessToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		log.Fatalf("write ping: %v", err)
	}

	for i := 0; i < *frames; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read error: %v", err)
		}
		log.Printf("got: %s", string(msg))
	}

	log.Println("smoke test finished")
}
