// Основной пакет сервиса SpeechDraft. Отвечает за чтение конфигурации, подключение к базе данных,
// миграцию моделей и запуск HTTP сервера.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft"
	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	"github.com/speechdraft/speechdraft/internal/speechdraft/gormlogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

// Пример запуска: go run main.go --noMigration --trace
func main() {
	noTranslateFlag := flag.Bool("noTranslate", false, "Turn off BD errors translate")
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	cfg, err := config.ReadConfig()
	if err != nil {
		slog.Error("Fail read config", "err", err)
		os.Exit(1)
	}

	slog.Info("SpeechDraft start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false,
	}), &gorm.Config{
		TranslateError: !*noTranslateFlag,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		slog.Info("Migrate models")
		if err := dao.Migrate(db); err != nil {
			slog.Error("Fail migrate models", "err", err)
			os.Exit(1)
		}
	}

	speechdraft.Server(db, cfg, version)
}

func PrintBanner() {
	banner := `
 ____                       _     ____             __ _
/ ___| _ __   ___  ___  ___| |__ |  _ \ _ __ __ _ / _| |_
\___ \| '_ \ / _ \/ _ \/ __| '_ \| | | | '__/ _' | |_| __|
 ___) | |_) |  __/  __/ (__| | | | |_| | | | (_| |  _| |_
|____/| .__/ \___|\___|\___|_| |_|____/|_|  \__,_|_|  \__| %s
      |_|
Write the speech together
----------------------------------------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion)
}
