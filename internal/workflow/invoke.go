package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud/openstack"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/config"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/notifications"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/observability"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/retention"
	"github.com/go-viper/mapstructure/v2"
)

// Invocation is the parameter mapping of a single run.
type Invocation struct {
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"pwd"`
	NASNames []string `mapstructure:"nasname"`
}

func (inv Invocation) Credentials() cloud.Credentials {
	return cloud.Credentials{Username: inv.User, Password: inv.Password}
}

// DecodeInvocation maps {"user", "pwd", "nasname"} onto an Invocation.
// "nasname" may be a single string or a list of strings.
func DecodeInvocation(params map[string]any) (Invocation, error) {
	var inv Invocation

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: singleNameHook,
		Result:     &inv,
	})
	if err != nil {
		return inv, err
	}
	if err := decoder.Decode(params); err != nil {
		return inv, fmt.Errorf("invalid invocation parameters: %w", err)
	}

	return inv, inv.Validate()
}

func (inv Invocation) Validate() error {
	var errs []error
	if inv.User == "" {
		errs = append(errs, errors.New("missing parameter: user"))
	}
	if inv.Password == "" {
		errs = append(errs, errors.New("missing parameter: pwd"))
	}
	if len(inv.NASNames) == 0 {
		errs = append(errs, errors.New("missing parameter: nasname"))
	}
	return errors.Join(errs...)
}

// singleNameHook lets a bare string stand in for a one-element list.
func singleNameHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice {
		return []string{data.(string)}, nil
	}
	return data, nil
}

// NewRunner wires the NAS client, the retention engine and the configured
// notifiers. metrics may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Runner, error) {
	engine, err := retention.NewEngine(cfg.Cloud.TimeZone)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	client := &openstack.Client{
		BaseURL:        cfg.Cloud.BaseURL,
		DomainID:       cfg.Cloud.DomainID,
		Location:       engine.Location,
		DeleteInterval: cfg.Cloud.DeleteInterval,
		Logger:         logger.With("component", "nas-client"),
	}
	if err := client.NewClient(); err != nil {
		return nil, err
	}

	return &Runner{
		Provider: client,
		Engine:   engine,
		Logger:   logger,
		Notifier: NewNotifier(cfg, logger),
		Metrics:  metrics,
	}, nil
}

// NewNotifier returns the configured failure notifiers, or nil when none is set.
// A notifier that cannot be built is logged and left out; alerting never
// prevents a run.
func NewNotifier(cfg *config.Config, logger *slog.Logger) notifications.Notifier {
	var multi notifications.Multi

	if cfg.Webhook.URL != "" {
		multi = append(multi, &notifications.Webhook{
			URL:      cfg.Webhook.URL,
			Username: cfg.Webhook.Username,
			Password: cfg.Webhook.Password,
		})
	}

	if cfg.Telegram.BotToken != "" {
		tg, err := notifications.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIEndpoint)
		if err != nil {
			logger.Warn("Telegram notifications disabled", "error", err)
		} else {
			multi = append(multi, tg)
		}
	}

	if len(multi) == 0 {
		return nil
	}
	return multi
}

// RunRetentionWorkflow performs one run for inv, bounded by cfg.Timeout.
// Setup failures are reported through the Result like any other fatal error.
func RunRetentionWorkflow(cfg *config.Config, inv Invocation, dryRun bool) Result {
	logger := SetupLogger(cfg.Log.Level, cfg.Log.File)

	if err := inv.Validate(); err != nil {
		logger.Error("Invalid invocation", "error", err)
		return Result{Error: err.Error()}
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
	}

	runner, err := NewRunner(cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to initialize workflow", "error", err)
		return Result{Error: err.Error()}
	}
	runner.DryRun = dryRun

	return runner.Run(ctx, inv.Credentials(), inv.NASNames)
}
