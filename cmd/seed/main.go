// Package main seeds the catalog with sample books for development.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/bookhaven
//	go run ./cmd/seed --data-path ~/bookhaven --admin admin@example.com --password "a strong one"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store/sqlite"
)

var (
	dataPath      = flag.String("data-path", "", "Base path for data storage (or DATA_PATH env)")
	adminEmail    = flag.String("admin", "", "Create an admin account with this email")
	adminPassword = flag.String("password", "", "Password for the admin account")
)

type sampleBook struct {
	title, author, genre, price, description string
	stock                                    int
}

var sampleCatalog = []sampleBook{
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "Science Fiction", "14.99", "An envoy alone on a planet of winter.", 12},
	{"Annihilation", "Jeff VanderMeer", "Science Fiction", "11.50", "The twelfth expedition into Area X.", 8},
	{"The Name of the Rose", "Umberto Eco", "Mystery", "16.00", "Murders in a medieval abbey library.", 5},
	{"The Big Sleep", "Raymond Chandler", "Mystery", "9.99", "Philip Marlowe takes a blackmail case.", 10},
	{"Beloved", "Toni Morrison", "Fiction", "13.25", "A house haunted by what was done to survive.", 7},
	{"Middlemarch", "George Eliot", "Fiction", "12.00", "A study of provincial life.", 6},
	{"The Fifth Season", "N. K. Jemisin", "Fantasy", "15.99", "The world ends for the last time.", 9},
	{"Piranesi", "Susanna Clarke", "Fantasy", "13.99", "The house is the world.", 11},
	{"A Brief History of Time", "Stephen Hawking", "Science", "17.50", "From the big bang to black holes.", 4},
	{"The Soul of a New Machine", "Tracy Kidder", "Technology", "14.00", "Building a computer against the clock.", 3},
	{"Persuasion", "Jane Austen", "Romance", "8.99", "A second chance eight years on.", 15},
	{"Sold Out Classic", "Forgotten Author", "Fiction", "5.00", "Always in demand, never in stock.", 0},
}

func main() {
	flag.Parse()

	base := *dataPath
	if base == "" {
		base = os.Getenv("DATA_PATH")
	}
	if base == "" {
		fmt.Fprintln(os.Stderr, "seed: --data-path or DATA_PATH is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	s, err := sqlite.Open(filepath.Join(base, "bookhaven.db"), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	seeded := 0
	for _, sample := range sampleCatalog {
		book := &domain.Book{
			Title:         sample.title,
			Author:        sample.author,
			Genre:         sample.genre,
			Price:         decimal.RequireFromString(sample.price),
			StockQuantity: sample.stock,
			Description:   sample.description,
		}
		book.ID = id.MustGenerate(id.PrefixBook)
		book.InitTimestamps()

		if err := s.CreateBook(ctx, book); err != nil {
			fmt.Fprintf(os.Stderr, "seed: create %q: %v\n", sample.title, err)
			os.Exit(1)
		}
		seeded++
	}
	fmt.Printf("Seeded %d books\n", seeded)

	if *adminEmail != "" {
		if *adminPassword == "" {
			fmt.Fprintln(os.Stderr, "seed: --password is required with --admin")
			os.Exit(1)
		}

		hash, err := auth.HashPassword(*adminPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed: hash password: %v\n", err)
			os.Exit(1)
		}

		user := &domain.User{
			Email:        *adminEmail,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			FirstName:    "Store",
			LastName:     "Admin",
		}
		user.ID = id.MustGenerate(id.PrefixUser)
		user.InitTimestamps()

		if err := s.CreateUser(ctx, user); err != nil {
			fmt.Fprintf(os.Stderr, "seed: create admin: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin %s\n", *adminEmail)
	}

	// The server reindexes an empty search index on boot, so no search
	// work is needed here.
}
