package cli

import (
	"fmt"

	"github.com/terraincognita07/nestling/internal/config"
	"github.com/terraincognita07/nestling/internal/db"
	"github.com/terraincognita07/nestling/internal/i18n"
	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/security"
	"github.com/terraincognita07/nestling/internal/services"
	"gorm.io/gorm"
)

// runtime is everything a command needs once configuration is resolved.
type runtime struct {
	cfg      *config.Config
	logger   *logging.ZapLogger
	database *gorm.DB
	i18n     *i18n.Manager
	tracker  *services.Tracker
}

func loadRuntime(envPath string, sink func(*runtime) services.AlarmSink) (*runtime, error) {
	cfg, err := config.Load(envPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	manager, err := i18n.Default(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}
	database, err := db.OpenSQLite(cfg.DBPath, logger.Named("db"))
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	env := &runtime{cfg: cfg, logger: logger, database: database, i18n: manager}
	var alarmSink services.AlarmSink
	if sink != nil {
		alarmSink = sink(env)
	}

	options, err := trackerOptions(cfg, tuning, manager, logger, alarmSink)
	if err != nil {
		env.close()
		return nil, err
	}
	repositories := db.NewRepositories(database)
	env.tracker = services.NewTracker(repositories.KV, options)
	if err := env.tracker.Load(); err != nil {
		env.close()
		return nil, fmt.Errorf("load tracker state: %w", err)
	}
	return env, nil
}

// trackerOptions seeds the stochastic prediction alternative from the system
// CSPRNG; tests inject their own source instead.
func trackerOptions(cfg *config.Config, tuning services.Tuning, manager *i18n.Manager, logger *logging.ZapLogger, sink services.AlarmSink) (services.TrackerOptions, error) {
	source, err := security.NewSeededRand()
	if err != nil {
		return services.TrackerOptions{}, fmt.Errorf("seed prediction jitter: %w", err)
	}
	return services.TrackerOptions{
		Tuning:   tuning,
		Location: cfg.Location,
		Rand:     source,
		Sink:     sink,
		Renderer: manager.Localizer(manager.DefaultLanguage()),
		Logger:   logger.Named("tracker"),
		Sound:    cfg.AlarmSound,
	}, nil
}

func (env *runtime) close() {
	if env.tracker != nil {
		env.tracker.Close()
	}
	if sqlDB, err := env.database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = env.logger.Sync()
}
