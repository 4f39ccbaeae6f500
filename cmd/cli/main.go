package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/reservespace/backend/internal/domain"
	"github.com/reservespace/backend/internal/infrastructure/logger"
	"github.com/reservespace/backend/internal/repository"
	"github.com/reservespace/backend/pkg/config"
	"github.com/reservespace/backend/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		seed(args)
	case "auth":
		handleAuth(args)
	case "spaces":
		handleSpaces(args)
	case "reservations":
		handleReservations(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// seed connects straight to Postgres and creates the admin account plus the
// demo space catalogue, so a fresh environment is usable immediately.
func seed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	adminEmail := fs.String("admin-email", "admin@reservespace.io", "admin account email")
	adminPassword := fs.String("admin-password", "", "admin account password (required)")
	demo := fs.Bool("demo", true, "create demo spaces")
	fs.Parse(args)

	if *adminPassword == "" {
		fmt.Println("Error: -admin-password is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to Postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure schema: %v\n", err)
		os.Exit(1)
	}

	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	if _, err := userRepo.GetByEmail(*adminEmail); err == nil {
		fmt.Printf("✓ Admin already exists: %s\n", *adminEmail)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		admin := &domain.User{
			Name:         "Administrator",
			Email:        *adminEmail,
			PasswordHash: string(hash),
			Roles:        []string{domain.RoleAdmin, domain.RoleUser},
			IsActive:     true,
		}
		if err := userRepo.Create(admin); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Admin created: %s\n", *adminEmail)
	}

	if !*demo {
		return
	}

	spaceRepo := repository.NewPostgresSpaceRepository(pool.GetDB(), log)
	existing, err := spaceRepo.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list spaces: %v\n", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Printf("✓ Spaces already present (%d), skipping demo seed\n", len(existing))
		return
	}

	for _, sp := range demoSpaces() {
		if err := spaceRepo.Create(sp); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create space %q: %v\n", sp.Name, err)
			os.Exit(1)
		}
		fmt.Printf("✓ Space created: %s (%s)\n", sp.Name, sp.Type)
	}
}

func demoSpaces() []*domain.Space {
	return []*domain.Space{
		{
			Name:         "Sala Aurora",
			Description:  "Bright meeting room with whiteboard and video conferencing",
			Type:         domain.SpaceMeetingRoom,
			Capacity:     8,
			PricePerHour: 50,
			Amenities:    []string{"whiteboard", "tv", "video-conference"},
			Available:    true,
			Floor:        "2",
			Location:     "North wing",
		},
		{
			Name:         "Auditório Central",
			Description:  "Main auditorium with stage and projection",
			Type:         domain.SpaceAuditorium,
			Capacity:     120,
			PricePerHour: 300,
			Amenities:    []string{"stage", "projector", "sound-system"},
			Available:    true,
			Floor:        "1",
			Location:     "Central block",
		},
		{
			Name:         "Coworking Hub",
			Description:  "Open coworking area with hot desks",
			Type:         domain.SpaceCoworking,
			Capacity:     30,
			PricePerHour: 15,
			Amenities:    []string{"wifi", "coffee", "lockers"},
			Available:    true,
			Floor:        "3",
			Location:     "East wing",
		},
		{
			Name:         "Sala de Treinamento",
			Description:  "Training room with workstations",
			Type:         domain.SpaceTrainingRoom,
			Capacity:     16,
			PricePerHour: 80,
			Amenities:    []string{"workstations", "projector"},
			Available:    true,
			Floor:        "2",
			Location:     "South wing",
		},
		{
			Name:         "Desk 42",
			Description:  "Single hot desk by the window",
			Type:         domain.SpaceDesk,
			Capacity:     1,
			PricePerHour: 8,
			Amenities:    []string{"monitor", "wifi"},
			Available:    true,
			Floor:        "3",
			Location:     "East wing",
		},
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: reservespace auth <login|logout|who>")
		return
	}

	switch args[0] {
	case "login":
		loginUser(args[1:])
	case "logout":
		os.Remove(tokenFile())
		fmt.Println("✓ Logged out")
	case "who":
		token := loadToken()
		if token == "" {
			fmt.Println("Not logged in")
			return
		}
		fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func handleSpaces(args []string) {
	if len(args) < 1 || args[0] != "list" {
		fmt.Println("Usage: reservespace spaces list")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/spaces", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var spaces []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&spaces)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCAPACITY\tPRICE/H\tAVAILABLE")
	for _, s := range spaces {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			s["id"], s["name"], s["type"], s["capacity"], s["pricePerHour"], s["available"])
	}
	w.Flush()
}

func handleReservations(args []string) {
	if len(args) < 1 || args[0] != "list" {
		fmt.Println("Usage: reservespace reservations list")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/reservations/my", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		fmt.Println("✗ Not logged in (run: reservespace auth login)")
		return
	}

	var reservations []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&reservations)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSPACE\tSTART\tEND\tSTATUS\tPRICE")
	for _, r := range reservations {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			r["id"], r["spaceName"], r["startTime"], r["endTime"], r["status"], r["totalPrice"])
	}
	w.Flush()
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("RESERVESPACE_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.reservespace/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.reservespace", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`ReserveSpace CLI

Usage:
  reservespace <command> [options]

Commands:
  seed          Create the admin account and demo spaces (direct DB access)
  auth          User authentication (login, logout, who)
  spaces        Space catalogue (list)
  reservations  Your reservations (list)
  help          Show this help message

Environment Variables:
  RESERVESPACE_API    API endpoint (default: http://localhost:8080/api)

Examples:
  reservespace seed -admin-password secret
  reservespace auth login -email admin@reservespace.io -password secret
  reservespace spaces list
  reservespace reservations list
`)
}
