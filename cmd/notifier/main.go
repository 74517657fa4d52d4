package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devsecdash/notification-engine/internal/channel"
	"github.com/devsecdash/notification-engine/internal/config"
	"github.com/devsecdash/notification-engine/internal/preferences"
	"github.com/devsecdash/notification-engine/internal/ratelimit"
	"github.com/devsecdash/notification-engine/internal/router"
	"github.com/devsecdash/notification-engine/internal/server"
	"github.com/devsecdash/notification-engine/internal/storage"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config  *config.Config
	store   storage.Store
	service *router.Service
	server  *server.HTTPServer
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging
	return utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File)
}

// initializeComponents initializes storage, the router service, and the server
func (app *Application) initializeComponents() error {
	logger := utils.GetLogger()

	// Storage
	storageCfg := &storage.StorageConfig{
		Type:             app.config.Storage.Type,
		ConnectionString: app.config.Storage.ConnectionString,
		MaxConnections:   app.config.Storage.MaxConnections,
		MaxIdleTime:      app.config.Storage.MaxIdleTime,
		MaxDeliveries:    app.config.Storage.MaxDeliveries,
	}
	if err := storage.ValidateStorageConfig(storageCfg); err != nil {
		return err
	}
	store, err := storage.NewStore(storageCfg)
	if err != nil {
		return err
	}
	if err := store.Connect(); err != nil {
		return err
	}
	if err := store.Migrate(); err != nil {
		return err
	}
	app.store = store

	// Router service
	prefs := preferences.NewPersistentStore(store)
	app.service = router.NewService(&router.Config{
		Workers:         app.config.Router.Workers,
		DeliveryTimeout: app.config.Router.DeliveryTimeout,
		RateLimit: &ratelimit.Config{
			Capacity: app.config.RateLimit.Capacity,
			Window:   app.config.RateLimit.Window,
		},
	}, prefs, store)

	app.registerChannels()

	// Restore persisted rules
	rules, err := store.ListRules(app.ctx)
	if err == nil {
		for _, rule := range rules {
			if err := app.service.AddNotificationRule(rule); err != nil {
				logger.WithError(err).WithField("rule_id", rule.ID).
					Warn("Skipping invalid persisted rule")
			}
		}
	}

	// HTTP server
	app.server = server.NewHTTPServer(&server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}, app.service)

	return nil
}

// registerChannels wires the enabled delivery channels into the router
func (app *Application) registerChannels() {
	channels := app.config.Channels

	if channels.Email.Enabled {
		app.service.RegisterChannel(channel.NewEmailChannel(&channel.EmailConfig{
			SMTPHost:  channels.Email.SMTPHost,
			SMTPPort:  channels.Email.SMTPPort,
			Username:  channels.Email.Username,
			Password:  channels.Email.Password,
			FromEmail: channels.Email.FromEmail,
			FromName:  channels.Email.FromName,
			Timeout:   channels.Email.Timeout,
		}))
	}
	if channels.Slack.Enabled {
		app.service.RegisterChannel(channel.NewSlackChannel(&channel.SlackConfig{
			WebhookURL: channels.Slack.WebhookURL,
			Timeout:    channels.Slack.Timeout,
		}))
	}
	if channels.Teams.Enabled {
		app.service.RegisterChannel(channel.NewTeamsChannel(&channel.TeamsConfig{
			WebhookURL: channels.Teams.WebhookURL,
			Timeout:    channels.Teams.Timeout,
		}))
	}
	if channels.InApp.Enabled {
		app.service.RegisterChannel(channel.NewInAppChannel(channels.InApp.MaxPerUser))
	}
	if channels.Webhook.Enabled {
		app.service.RegisterChannel(channel.NewWebhookChannel(&channel.WebhookConfig{
			Timeout: channels.Webhook.Timeout,
		}))
	}
}

// Start starts all application components
func (app *Application) Start() error {
	if err := app.service.Start(app.ctx); err != nil {
		return err
	}
	return app.server.Start()
}

// Stop gracefully stops all application components
func (app *Application) Stop() {
	logger := utils.GetLogger()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown error")
	}
	if err := app.service.Stop(); err != nil {
		logger.WithError(err).Warn("Router shutdown error")
	}
	if err := app.store.Close(); err != nil {
		logger.WithError(err).Warn("Storage close error")
	}

	app.cancel()
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "notifier",
		Short:   "Multi-channel notification routing and delivery engine",
		Version: AppVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			app, err := NewApplication(cfg)
			if err != nil {
				return err
			}

			if err := app.Start(); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			app.Stop()
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
