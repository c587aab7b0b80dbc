package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"remindme/internal/agent"
	"remindme/internal/config"
	"remindme/internal/logger"
	"remindme/internal/models"
)

func main() {
	logger.Init()
	log := logger.Get()

	err := godotenv.Load(".env.local")
	if err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	var (
		apiURL   = flag.String("api", config.GetEnv("API_URL", "http://localhost:8080"), "reminder API base URL")
		email    = flag.String("email", config.GetEnv("AGENT_EMAIL", ""), "account email")
		name     = flag.String("name", config.GetEnv("AGENT_NAME", ""), "account name, required for signup")
		password = flag.String("password", config.GetEnv("AGENT_PASSWORD", ""), "account password")
		signup   = flag.Bool("signup", false, "create the account instead of logging in")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or AGENT_EMAIL/AGENT_PASSWORD)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := agent.NewClient(*apiURL)
	if *signup {
		err = client.Signup(ctx, *email, *name, *password)
	} else {
		err = client.Login(ctx, *email, *password)
	}
	if err != nil {
		log.WithError(err).Fatal("Authentication failed")
	}

	deviceID := uuid.NewString()
	pushToken := config.GetEnv("PUSH_TOKEN", "")
	if pushToken != "" {
		if err := client.RegisterPushToken(ctx, pushToken, deviceID); err != nil {
			log.WithError(err).Warn("Failed to register push token")
		}
	}

	a := agent.New(client, config.PollInterval(), log)
	a.NavigateBack = func() {
		fmt.Println("-- back to reminder list --")
	}
	a.Poller.OnUpdate = func(reminders []models.Reminder) {
		a.SyncSchedules(reminders)
		render(reminders)
	}
	a.Poller.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
	}

	go a.Run(ctx)
	a.Poller.Focus(ctx)
	defer a.Poller.Blur()

	log.Infof("Agent polling %s as %s", *apiURL, *email)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("Agent stopped")
}

var lastRender string

func render(reminders []models.Reminder) {
	var b strings.Builder
	if len(reminders) == 0 {
		b.WriteString("No reminders set.\n")
	}
	for _, r := range reminders {
		marker := " "
		switch r.Status {
		case models.StatusCompleted:
			marker = "x"
		case models.StatusExpired:
			marker = "!"
		}
		fmt.Fprintf(&b, "[%s] %-30s due %s (%s)\n",
			marker, r.Title, r.DueDate.Local().Format(time.RFC822), r.Priority)
	}

	// repaint only when the list actually changed
	out := b.String()
	if out == lastRender {
		return
	}
	lastRender = out
	fmt.Print(out)
}
