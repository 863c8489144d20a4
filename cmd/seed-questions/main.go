package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/cache"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/database"
	"github.com/stemsi/quizdesk/internal/logger"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/stemsi/quizdesk/internal/service"
)

type seedQuestion struct {
	text    string
	choices []string
	correct int
}

var sampleBank = []seedQuestion{
	{"What is 7 x 8?", []string{"54", "56", "64", "48"}, 1},
	{"Which planet is closest to the Sun?", []string{"Venus", "Earth", "Mercury", "Mars"}, 2},
	{"What is the chemical symbol for water?", []string{"H2O", "CO2", "O2", "NaCl"}, 0},
	{"How many sides does a hexagon have?", []string{"5", "6", "7", "8"}, 1},
	{"Which gas do plants absorb for photosynthesis?", []string{"Oxygen", "Nitrogen", "Carbon dioxide"}, 2},
	{"What is the boiling point of water at sea level in Celsius?", []string{"90", "100", "110", "120"}, 1},
	{"Which is a prime number?", []string{"21", "27", "29", "33"}, 2},
	{"What is the largest ocean?", []string{"Atlantic", "Indian", "Arctic", "Pacific"}, 3},
	{"Which organ pumps blood?", []string{"Lungs", "Heart", "Liver", "Kidney"}, 1},
	{"What is 15% of 200?", []string{"20", "25", "30", "35"}, 2},
}

func main() {
	reset := flag.Bool("clear", false, "clear the question bank before seeding")
	flag.Parse()

	cfg := config.Load()
	log, closer, err := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, 1, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// The server's redis cache, if any, expires on its own TTL.
	questionService := service.NewQuestionService(repository.NewQuestionRepository(db), cache.Noop{}, log)

	if *reset {
		n, err := questionService.ClearAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to clear question bank")
		}
		fmt.Printf("Removed %d existing questions.\n", n)
	}

	fmt.Printf("=== Seeding %d Questions ===\n", len(sampleBank))

	successCount := 0
	for _, sq := range sampleBank {
		_, err := questionService.Create(ctx, model.QuestionRequest{
			Text:    sq.text,
			Choices: sq.choices,
			Correct: model.NewChoiceIndex(sq.correct),
		})
		if err != nil {
			fmt.Printf("Error creating %q: %v\n", sq.text, err)
			continue
		}
		successCount++
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d questions.\n", successCount, len(sampleBank))
}
