package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campuschat/api"
	"campuschat/config"
	"campuschat/notify"
	"campuschat/push"
	"campuschat/session"
	"campuschat/storage"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	token := os.Getenv("CAMPUS_CHAT_TOKEN")
	if token == "" {
		log.Fatalf("startup failed: CAMPUS_CHAT_TOKEN is not set")
	}

	sess, err := session.New(token, session.Options{
		UserID: os.Getenv("CAMPUS_CHAT_USER_ID"),
	})
	if err != nil {
		log.Fatalf("startup failed while building session: %v", err)
	}
	if err := sess.Activate(); err != nil {
		log.Fatalf("startup failed while activating session: %v", err)
	}
	defer sess.Teardown()

	fmt.Printf("Client ID:   %s\n", cfg.ClientID)
	fmt.Printf("User ID:     %s\n", sess.UserID())
	fmt.Printf("Server URL:  %s\n", cfg.ServerURL)
	fmt.Printf("Push URL:    %s\n", cfg.PushURL)
	fmt.Printf("Config File: %s\n", cfgPath)

	store, err := storage.Open()
	if err != nil {
		log.Fatalf("startup failed while opening session cache: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("session cache close error: %v", err)
		}
	}()

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.ServerURL,
		Auth:    sess,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
	})
	if err != nil {
		log.Fatalf("startup failed while building REST client: %v", err)
	}

	notifications, err := notify.NewSync(notify.Config{
		API:    client,
		Cache:  store,
		UserID: sess.UserID(),
	})
	if err != nil {
		log.Fatalf("startup failed while building notification sync: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := notifications.LoadSnapshot(ctx); err != nil {
		log.Fatalf("startup failed while loading notification snapshot: %v", err)
	}
	fmt.Printf("Unread:      %d\n", notifications.UnreadCount())

	rawToken, err := sess.Token()
	if err != nil {
		log.Fatalf("startup failed while reading session token: %v", err)
	}

	channel, err := push.NewChannel(push.Config{
		URL:    cfg.PushURL,
		Token:  rawToken,
		UserID: sess.UserID(),
	})
	if err != nil {
		log.Fatalf("startup failed while building push channel: %v", err)
	}

	if err := channel.Start(ctx); err != nil {
		log.Printf("push channel startup failed, continuing without live updates: %v", err)
	} else {
		defer channel.Stop()
		fmt.Println("Push:        connected")
		go notifications.Run(ctx, channel.Events())
	}

	fmt.Println("Status:      running (press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Println("Status:      shutting down")
}
