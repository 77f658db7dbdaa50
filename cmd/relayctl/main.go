// relayctl is a developer client for exercising a running relay:
// it can send text or voice messages, fetch history, and sit on the
// live channel printing every delivered frame.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "send":
		sendCmd(os.Args[2:])
	case "history":
		historyCmd(os.Args[2:])
	case "listen":
		listenCmd(os.Args[2:])
	case "login":
		loginCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: relayctl <command> [flags]

commands:
  send     send a text or voice message
  history  fetch recent messages
  listen   connect to the live channel and print frames
  login    exchange a user id for a live-channel token`)
	os.Exit(2)
}

func sendCmd(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "Relay base URL")
	sender := fs.String("from", "alice", "Sender user ID")
	receiver := fs.String("to", "bob", "Receiver user ID")
	text := fs.String("text", "", "Message text")
	audio := fs.String("audio", "", "Path to an audio file (sends a voice message)")
	fs.Parse(args)

	var resp *http.Response
	var err error
	if *audio != "" {
		resp, err = sendVoice(*server, *sender, *receiver, *audio)
	} else {
		resp, err = sendText(*server, *sender, *receiver, *text)
	}
	if err != nil {
		log.Fatalf("send failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func sendText(server, sender, receiver, text string) (*http.Response, error) {
	payload, _ := json.Marshal(map[string]string{
		"sender_id":   sender,
		"receiver_id": receiver,
		"mode":        "text",
		"text":        text,
	})
	return http.Post(server+"/api/peer-message", "application/json", bytes.NewReader(payload))
}

func sendVoice(server, sender, receiver, path string) (*http.Response, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("sender_id", sender)
	w.WriteField("receiver_id", receiver)
	w.WriteField("mode", "voice")

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", mimeTypeFor(path))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	part.Write(audio)
	w.Close()

	return http.Post(server+"/api/peer-message", w.FormDataContentType(), &buf)
}

func mimeTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/m4a"
	default:
		return "audio/webm"
	}
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "Relay base URL")
	limit := fs.Int("limit", 20, "Number of messages to fetch")
	fs.Parse(args)

	resp, err := http.Get(fmt.Sprintf("%s/api/history?limit=%d", *server, *limit))
	if err != nil {
		log.Fatalf("history failed: %v", err)
	}
	defer resp.Body.Close()

	var msgs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		log.Fatalf("decode failed: %v", err)
	}
	for _, m := range msgs {
		log.Printf("[%v -> %v] %v | %v", m["sender_id"], m["receiver_id"], m["original"], m["translated"])
	}
}

func loginCmd(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "Relay base URL")
	user := fs.String("user", "alice", "User ID")
	name := fs.String("name", "", "Display name")
	fs.Parse(args)

	payload, _ := json.Marshal(map[string]string{"user_id": *user, "name": *name})
	resp, err := http.Post(*server+"/api/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Println(string(bytes.TrimSpace(body)))
}

func listenCmd(args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	server := fs.String("server", "localhost:8080", "Relay host:port")
	user := fs.String("user", "alice", "User ID to connect as")
	token := fs.String("token", "", "JWT from relayctl login (overrides -user)")
	fs.Parse(args)

	query := url.Values{}
	if *token != "" {
		query.Set("token", *token)
	} else {
		query.Set("user_id", *user)
	}
	u := url.URL{Scheme: "ws", Host: *server, Path: "/ws", RawQuery: query.Encode()}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read failed: %v", err)
				return
			}
			log.Printf("frame: %s", frame)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-done:
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
