package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chandigest/internal/config"
	"chandigest/internal/discord"
	"chandigest/internal/domain"
	"chandigest/internal/summarize"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your chandigest setup",
		Long: `Verifies that the configuration, profiles, prompt files, and credentials
are usable, and probes both external APIs. Reports pass/warn/fail per check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("chandigest doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nCreate %s with at least one profile.\n", cfgPath)
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, %d failed\n", passed, 1)
				return nil
			}
			printPass("Config validation", fmt.Sprintf("%d profile(s)", len(cfg.Profiles)))
			passed++

			// 3. Prompt files readable
			for _, name := range cfg.ProfileNames() {
				p := cfg.Profiles[name]
				if p.PromptFile == "" {
					printWarn("Prompt: "+name, "no prompt file, built-in prompt will be used")
					warned++
					continue
				}
				if _, err := config.LoadPrompt(p.PromptFile); err != nil {
					printWarn("Prompt: "+name, err.Error())
					warned++
				} else {
					printPass("Prompt: "+name, p.PromptFile)
					passed++
				}
			}

			// 4. Credentials present
			sec := config.LoadSecrets()
			if sec.BotToken == "" && sec.UserToken == "" {
				printFail("Credentials", "neither BOT_TOKEN nor DISCORD_TOKEN is set")
				failed++
			} else {
				if sec.BotToken == "" {
					printWarn("Credentials", "BOT_TOKEN not set, posting will use the user identity only")
					warned++
				}
				if sec.UserToken == "" {
					printWarn("Credentials", "DISCORD_TOKEN not set, no delivery fallback")
					warned++
				}
				if sec.BotToken != "" && sec.UserToken != "" {
					printPass("Credentials", "primary and fallback configured")
					passed++
				}
			}
			if sec.OpenRouterKey == "" {
				printFail("OpenRouter key", "OPENROUTER_API_KEY is not set")
				failed++
			} else {
				printPass("OpenRouter key", "set")
				passed++
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			// 5. Discord identity probes
			for _, probe := range []struct {
				label string
				cred  domain.Credential
			}{
				{"Discord bot identity", domain.Credential{Kind: domain.CredentialPrimary, Token: "Bot " + sec.BotToken}},
				{"Discord user identity", domain.Credential{Kind: domain.CredentialSecondary, Token: sec.UserToken}},
			} {
				if !probe.cred.Set() || probe.cred.Token == "Bot " {
					continue
				}
				client, err := discord.NewClient(discord.ClientConfig{Credential: probe.cred, Logger: logger})
				if err != nil {
					printFail(probe.label, err.Error())
					failed++
					continue
				}
				if name, err := client.Identity(ctx); err != nil {
					printFail(probe.label, err.Error())
					failed++
				} else {
					printPass(probe.label, name)
					passed++
				}
			}

			// 6. OpenRouter reachable
			if sec.OpenRouterKey != "" {
				or := summarize.NewOpenRouter(summarize.OpenRouterConfig{APIKey: sec.OpenRouterKey, Logger: logger})
				if err := or.Healthy(ctx); err != nil {
					printFail("OpenRouter", err.Error())
					failed++
				} else {
					printPass("OpenRouter", "reachable")
					passed++
				}
			}

			fmt.Printf("\n%d passed, %d warnings, %d failed\n", passed, warned, failed)
			return nil
		},
	}
}

func printPass(check, detail string) { fmt.Printf("  ✓ %-24s %s\n", check, detail) }
func printWarn(check, detail string) { fmt.Printf("  ! %-24s %s\n", check, detail) }
func printFail(check, detail string) { fmt.Printf("  ✗ %-24s %s\n", check, detail) }
