// Управление конфигурацией сервиса из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных (WEB_URL).
//   - Преобразование типов данных из переменных окружения (string, int, bool).
//   - Маскировка секретных значений (пароли, ключи, токены) в логах.
//   - Значения по умолчанию для сроков действия ссылок, скорости речи и адресов прослушивания.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"time"
)

var ErrWebURLRequired = errors.New("WEB_URL is required")

type Config struct {
	SecretKey string `env:"SECRET_KEY"`

	AWSRegion     string `env:"AWS_REGION"`
	AWSAccessKey  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint   string `env:"AWS_S3_ENDPOINT_URL"`
	AWSBucketName string `env:"AWS_S3_BUCKET_NAME"`
	ExportsPath   string `env:"EXPORTS_PATH"`

	DatabaseDSN string `env:"DATABASE_URL"`

	EmailHost     string `env:"EMAIL_HOST"`
	EmailUser     string `env:"EMAIL_HOST_USER"`
	EmailPassword string `env:"EMAIL_HOST_PASSWORD"`
	EmailPort     int    `env:"EMAIL_PORT"`
	EmailFrom     string `env:"EMAIL_FROM"`
	EmailWorkers  int    `env:"EMAIL_WORKERS"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	MagicLinkTTLHours int `env:"MAGIC_LINK_TTL_HOURS"`
	MagicLinkMaxUses  int `env:"MAGIC_LINK_MAX_USES"`
	InvitationTTLDays int `env:"INVITATION_TTL_DAYS"`

	SpeakingWPM int `env:"SPEAKING_WPM"`

	SignUpEnable bool `env:"SIGN_UP_ENABLE"`

	ListenAddr  string `env:"LISTEN_ADDR"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// ReadConfig загружает конфигурацию из переменных окружения, проверяет обязательные поля и проставляет значения по умолчанию.
func ReadConfig() (*Config, error) {
	config := &Config{}

	envConfig("env", config)

	if config.WebURLRaw == "" {
		return nil, ErrWebURLRequired
	}
	var err error
	config.WebURL, err = url.Parse(config.WebURLRaw)
	if err != nil {
		return nil, fmt.Errorf("WEB_URL incorrect: %w", err)
	}

	config.setDefaults()
	return config, nil
}

func (c *Config) setDefaults() {
	if c.EmailWorkers <= 0 {
		c.EmailWorkers = 5
	}

	if c.EmailPort <= 0 {
		c.EmailPort = 587
	}

	if c.MagicLinkTTLHours <= 0 {
		c.MagicLinkTTLHours = 168
	}

	if c.MagicLinkMaxUses < 0 {
		c.MagicLinkMaxUses = 0
	}

	if c.InvitationTTLDays <= 0 {
		c.InvitationTTLDays = 14
	}

	if c.SpeakingWPM <= 0 {
		c.SpeakingWPM = 130
	}

	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}

	if c.MetricsAddr == "" {
		c.MetricsAddr = ":2112"
	}

	if c.ExportsPath == "" {
		c.ExportsPath = "exports"
	}
}

// MagicLinkTTL срок действия новой ссылки-приглашения.
func (c *Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkTTLHours) * time.Hour
}

func (c *Config) InvitationTTL() time.Duration {
	return time.Duration(c.InvitationTTLDays) * 24 * time.Hour
}

// MinioEnabled сообщает, заданы ли параметры объектного хранилища.
func (c *Config) MinioEnabled() bool {
	return c.AWSEndpoint != "" && c.AWSBucketName != ""
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		value := GetEnv(fEnvTag)
		if value == "" {
			continue
		}

		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", maskValue(fName, value)),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(value)
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}

// Secure passwords in log
func maskValue(field, value string) string {
	name := strings.ToLower(field)
	if !strings.Contains(name, "pass") && !strings.Contains(name, "secret") && !strings.Contains(name, "token") && !strings.Contains(name, "key") {
		return value
	}

	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
