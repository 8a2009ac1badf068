package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		seedCmd(apiURL, args)
	case "walk":
		walkCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Todo Seeder - Development tool for populating and checking the todo API

USAGE:
  seeder <command> [options]

COMMANDS:
  seed      Create a main user with todos, plus a few other users with their own todos
  walk      Page through a user's todos following next_cursor and check the listing
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Seed the default account (test@example.com / password) with 50 todos
  seeder seed

  # Seed 200 todos and no other users
  seeder seed --count=200 --others=0

  # Walk the default account's todos 7 at a time
  seeder walk --limit=7`)
}

func seedCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	email := fs.String("email", "test@example.com", "Email of the main user")
	password := fs.String("password", "password", "Password of the main user")
	count := fs.Int("count", 50, "Number of todos for the main user")
	others := fs.Int("others", 5, "Number of additional users")
	perUser := fs.Int("per-user", 10, "Number of todos for each additional user")
	fs.Parse(args)

	if *count < 0 || *others < 0 || *perUser < 0 {
		fmt.Println("Error: counts must not be negative")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Todo Seeder ===")
	fmt.Println()

	fmt.Print("Creating main user... ")
	user, token, err := client.Register("Edo Developer", *email, *password)
	if errors.Is(err, errEmailTaken) {
		user, token, err = client.Login(*email, *password)
	}
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (user: %s)\n", user.Email)

	if err := createTodos(client, token, *count); err != nil {
		fmt.Printf("  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Created %d todos\n", *count)

	if *others > 0 {
		fmt.Println()
		fmt.Printf("Adding %d other users:\n", *others)
	}
	for i := 1; i <= *others; i++ {
		suffix := time.Now().UnixNano() % 100000
		otherEmail := fmt.Sprintf("user%d_%d@example.com", i, suffix)
		other, otherToken, err := client.Register(fmt.Sprintf("User %d", i), otherEmail, "password")
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to create user: %v\n", i, *others, err)
			os.Exit(1)
		}
		if err := createTodos(client, otherToken, *perUser); err != nil {
			fmt.Printf("  [%d/%d] FAILED to create todos: %v\n", i, *others, err)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] %s with %d todos\n", i, *others, other.Email, *perUser)
	}

	fmt.Println()
	fmt.Printf("Database seeded! Login with %s / %s\n", *email, *password)
}

func walkCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("walk", flag.ExitOnError)
	email := fs.String("email", "test@example.com", "Email of the user to walk")
	password := fs.String("password", "password", "Password of the user")
	limit := fs.Int("limit", 0, "Page size to request (0 uses the server default)")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	_, token, err := client.Login(*email, *password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Logout(token)

	seen := make(map[string]bool)
	var problems []string
	var last time.Time
	cursor := ""
	pages := 0

	for {
		page, err := client.ListTodos(token, cursor, *limit)
		if err != nil {
			fmt.Printf("Page %d failed: %v\n", pages+1, err)
			os.Exit(1)
		}
		pages++

		for _, todo := range page.Data {
			if seen[todo.ID] {
				problems = append(problems, fmt.Sprintf("todo %s returned twice", todo.ID))
			}
			seen[todo.ID] = true

			createdAt, err := time.Parse(time.RFC3339Nano, todo.CreatedAt)
			if err != nil {
				problems = append(problems, fmt.Sprintf("todo %s has bad created_at %q", todo.ID, todo.CreatedAt))
				continue
			}
			if !last.IsZero() && createdAt.After(last) {
				problems = append(problems, fmt.Sprintf("todo %s is newer than the one before it", todo.ID))
			}
			last = createdAt
		}

		fmt.Printf("  page %d: %d todos (per_page %d)\n", pages, len(page.Data), page.Meta.PerPage)

		if page.Meta.NextCursor == nil {
			break
		}
		cursor = *page.Meta.NextCursor
	}

	fmt.Println()
	fmt.Printf("Walked %d todos in %d pages\n", len(seen), pages)
	if len(problems) > 0 {
		fmt.Println("Problems:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}
	fmt.Println("OK: every todo seen once, newest first")
}

func createTodos(client *APIClient, token string, n int) error {
	for i := 0; i < n; i++ {
		if _, err := client.CreateTodo(token, fakeTitle(), fakeParagraph(), rand.IntN(100) < 30); err != nil {
			return fmt.Errorf("todo %d: %w", i+1, err)
		}
	}
	return nil
}

var words = strings.Fields(`buy call clean fix write read plan book pay send review water walk
	email draft update order pick check renew schedule cancel return the a new old weekly
	groceries rent report dentist car garden invoice laundry plants dog tickets meeting
	budget passport notes slides kitchen bike taxes letter`)

func fakeTitle() string {
	n := 3 + rand.IntN(4)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[rand.IntN(len(words))]
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, " ")
}

func fakeParagraph() string {
	sentences := make([]string, 2)
	for i := range sentences {
		sentences[i] = fakeTitle() + "."
	}
	return strings.Join(sentences, " ")
}
