package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cportal/internal/cache"
	"cportal/internal/config"
	"cportal/internal/coordinator"
	apperrors "cportal/internal/errors"
	"cportal/internal/health"
	"cportal/internal/monitor"
	"cportal/internal/portal"
	"cportal/internal/report"
	"cportal/internal/storage"
	"cportal/internal/telegram"
)

func main() {
	log.Println("🚀 Starting cportal agent...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Configuration error: ", err)
	}
	log.Println("✓ Configuration loaded")

	log.Println("📋 Initializing complaint storage...")
	store := storage.New(cfg.StorageFile)

	log.Println("📬 Initializing Telegram...")
	tg := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode)

	log.Println("🌐 Initializing portal client...")
	client := portal.NewClient(cfg.BaseURL, cfg.HTTPTimeout, cfg.HTTPMaxConns, cfg.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Login with retry logic
	log.Println("🔐 Attempting to login...")
	if err := loginWithRetry(ctx, client, cfg); err != nil {
		log.Fatal("❌ Login failed after ", cfg.MaxLoginRetries, " attempts: ", err)
	}

	cacheStore := cache.NewStore()
	coord := coordinator.New(cacheStore)
	mon := monitor.New(coord, client, store, tg, cfg)

	healthMonitor := health.NewMonitor(cacheStore)
	health.StartServer(healthMonitor, cfg.HealthCheckPort)

	// Resolve-button flow runs off long polling in the background
	go tg.HandleUpdates(ctx, client, store)

	// Initial fetch
	log.Println("📬 Fetching complaints...")
	if err := runCycle(ctx, mon, client, tg, cfg); err != nil {
		log.Fatal("❌ Failed to fetch complaints: ", err)
	}
	healthMonitor.UpdateFetchStatus("success")

	log.Println("✅ Initial fetch completed!")
	log.Printf("⏰ Starting refresh loop - will check every %v...", cfg.FetchInterval)
	log.Println("═══════════════════════════════════════════════════════════")

	ticker := time.NewTicker(cfg.FetchInterval)
	defer ticker.Stop()

	lastReportDay := 0

	for range ticker.C {
		log.Println("\n📬 Refreshing complaints list...")
		log.Println("⏰ Time:", time.Now().Format("2006-01-02 15:04:05"))

		cycleCtx, cycleCancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		err := runCycle(cycleCtx, mon, client, tg, cfg)
		cycleCancel()

		if err != nil {
			log.Println("⚠️  Final error after all retry attempts:", err)
			healthMonitor.UpdateFetchStatus(fmt.Sprintf("error: %v", err))
			// Continue to next iteration - don't exit the loop
		} else {
			healthMonitor.UpdateFetchStatus("success")
		}

		// Daily summary report, once per day at the configured hour
		now := time.Now()
		if now.Hour() == cfg.ReportHour && now.YearDay() != lastReportDay {
			if err := sendDailyReport(ctx, coord, mon, tg); err != nil {
				log.Println("⚠️  Failed to send daily report:", err)
			} else {
				lastReportDay = now.YearDay()
			}
		}

		log.Println("═══════════════════════════════════════════════════════════")
	}
}

// loginWithRetry attempts login up to MaxLoginRetries times with a delay
// between attempts.
func loginWithRetry(ctx context.Context, client *portal.Client, cfg *config.Config) error {
	var loginErr error
	for attempt := 1; attempt <= cfg.MaxLoginRetries; attempt++ {
		log.Printf("   Login attempt %d/%d...", attempt, cfg.MaxLoginRetries)
		loginErr = client.Login(ctx, cfg.Username, cfg.Password)
		if loginErr == nil {
			return nil
		}

		if attempt < cfg.MaxLoginRetries {
			log.Printf("   ❌ Login failed: %v", loginErr)
			log.Printf("   ⏳ Retrying in %v...", cfg.LoginRetryDelay)
			time.Sleep(cfg.LoginRetryDelay)
		}
	}
	return loginErr
}

// runCycle runs one refresh cycle with the complete error handling flow:
//
//	Fetch fails
//	  ├─ normal error → log & return (cached data keeps serving)
//	  ├─ session expired
//	  │   ├─ re-login succeeds → retry fetch
//	  │   └─ re-login fails
//	  │       ├─ retry login once more
//	  │       └─ if still fails → Telegram alert
func runCycle(ctx context.Context, mon *monitor.Monitor, client *portal.Client, tg *telegram.Client, cfg *config.Config) error {
	// Proactive expiry check saves a doomed round trip
	if !client.SessionValid() {
		log.Println("🔄 Session token expired, re-logging in before fetch...")
		if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
			log.Println("❌ Pre-fetch re-login failed:", err)
		}
	}

	err := mon.RunCycle(ctx)
	if err == nil {
		return nil
	}

	if !apperrors.IsSessionExpired(err) {
		log.Println("⚠️  Error fetching complaints:", err)
		return err
	}

	log.Println("🔄 Session expired:", err)
	log.Println("🔐 Attempting re-login...")

	loginErr := client.Login(ctx, cfg.Username, cfg.Password)
	if loginErr == nil {
		log.Println("✓ Re-login successful, retrying fetch...")
		if retryErr := mon.RunCycle(ctx); retryErr == nil {
			log.Println("✓ Fetch successful after re-login")
			return nil
		} else {
			log.Println("⚠️  Fetch still failed after re-login:", retryErr)
			return retryErr
		}
	}

	// Re-login failed - drop the token and try once more from scratch
	log.Println("❌ Re-login failed:", loginErr)
	log.Println("🔄 Resetting session and retrying login...")
	client.Logout()

	loginErr2 := client.Login(ctx, cfg.Username, cfg.Password)
	if loginErr2 == nil {
		log.Println("✓ Login successful after session reset, retrying fetch...")
		if retryErr := mon.RunCycle(ctx); retryErr == nil {
			log.Println("✓ Fetch successful after session reset")
			return nil
		} else {
			log.Println("⚠️  Fetch failed after session reset:", retryErr)
			return retryErr
		}
	}

	// All retry attempts failed - send Telegram alert
	log.Println("❌ All retry attempts failed:", loginErr2)
	log.Println("🚨 Sending critical failure alert...")

	alertErr := tg.SendCriticalAlert(
		"Login Failure After Session Reset",
		fmt.Sprintf("Unable to login after session reset. Last error: %v", loginErr2),
		3, // initial login, re-login, login after reset
	)
	if alertErr != nil {
		log.Println("⚠️  Failed to send Telegram alert:", alertErr)
	}

	return fmt.Errorf("all retry attempts failed: %w", loginErr2)
}

// sendDailyReport renders the open-complaint table and uploads it with an
// aggregate caption.
func sendDailyReport(ctx context.Context, coord *coordinator.Coordinator, mon *monitor.Monitor, tg *telegram.Client) error {
	log.Println("📊 Building daily summary report...")

	complaints, err := coord.Complaints(ctx, mon.ComplaintsFetcher())
	if err != nil && len(complaints) == 0 {
		return err
	}

	open := report.Open(complaints)
	if len(open) == 0 {
		log.Println("✓ No open complaints, skipping report image")
		return nil
	}

	image, err := report.RenderTable(open)
	if err != nil {
		return err
	}

	return tg.SendPhoto(image, report.Summarize(open).Caption())
}
