// Command useradd creates an account from the terminal. The password is
// read without echo, or from stdin when it is not a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/auth"
	"github.com/kuldeep456789/VisionIQ/internal/backend"
	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/service"
	"golang.org/x/term"
)

func main() {
	flag.String("config", "", "path to YAML config file")
	email := flag.String("email", "", "account email")
	name := flag.String("name", "", "display name (defaults to the email local part)")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StorageBackend == config.StorageNone {
		log.Fatal("Storage is disabled (STORAGE_BACKEND=none)")
	}

	password, err := readPassword(os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := backend.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	svc := service.NewAuthService(store.Users(),
		auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		auth.NewHasher(cfg.BcryptCost),
		logger.Discard())

	resp, err := svc.Register(ctx, dto.RegisterRequest{Email: *email, Password: password, Name: *name})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Printf("✅ Created user %d (%s, %s)\n", resp.User.ID, resp.User.Email, resp.User.Name)
}

func readPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
