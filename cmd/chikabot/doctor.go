package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chikabot/internal/config"
	"chikabot/internal/delivery"
	"chikabot/internal/generator"
	"chikabot/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the chikabot setup",
		Long: `Verifies that configuration, the text-generation API, the platform
send API, and the reply log database are correctly set up. Reports
pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("chikabot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0

			cfg, err := config.Load()
			if err != nil {
				printFail("Config", err.Error())
				fmt.Printf("\n0 passed, 1 failed\n")
				return nil
			}
			printPass("Config", "all required values present")
			passed++

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			gen := generator.NewOpenAI(generator.OpenAIConfig{
				APIKey:  cfg.OpenAIAPIKey,
				APIBase: cfg.OpenAIAPIBase,
				Model:   cfg.Model,
				Logger:  logger,
			})
			if err := gen.Healthy(ctx); err != nil {
				printFail("Generator API", err.Error())
				failed++
			} else {
				printPass("Generator API", "reachable, key accepted")
				passed++
			}

			sender := delivery.NewClient(delivery.Config{
				AccessToken: cfg.AccessToken,
				APIBase:     cfg.GraphAPIBase,
				Timeout:     cfg.DeliveryTimeout,
				Logger:      logger,
			})
			if err := sender.Healthy(ctx); err != nil {
				printFail("Platform API", err.Error())
				failed++
			} else {
				printPass("Platform API", "reachable, token accepted")
				passed++
			}

			replyLog, err := store.NewSQLiteStore(cfg.DBPath, logger)
			if err != nil {
				printFail("Reply log", err.Error())
				failed++
			} else {
				records, err := replyLog.Recent(ctx, 5)
				if err != nil {
					printFail("Reply log", err.Error())
					failed++
				} else {
					printPass("Reply log", fmt.Sprintf("%s (%d recent records)", cfg.DBPath, len(records)))
					passed++
				}
				replyLog.Close()
			}

			if cfg.PersonaPath != "" {
				if _, err := generator.LoadPersona(cfg.PersonaPath); err != nil {
					printFail("Persona file", err.Error())
					failed++
				} else {
					printPass("Persona file", cfg.PersonaPath)
					passed++
				}
			}

			fmt.Printf("\n%d passed, %d failed\n", passed, failed)
			return nil
		},
	}
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-16s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-16s %s\n", check, detail)
}
