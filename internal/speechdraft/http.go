// Пакет speechdraft содержит HTTP API сервиса подготовки речей: проекты событий, текст речи,
// приглашения участников, анкеты для гостей и планирование даты и площадки.
//
// Основные возможности:
//   - Аутентификация по JWT (заголовок Authorization или cookies).
//   - Текст речи в формате TipTap, старые документы приводятся к нему при чтении.
//   - Анализ читаемости и экспорт речи в Markdown и PDF.
//   - Периодическая очистка просроченных ссылок и файлов экспортов.
//   - Метрики Prometheus на отдельном порту.
package speechdraft

// @title SpeechDraft API
// @version 1.0
// @description API сервиса совместной подготовки речей.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @BasePath /
import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/speechdraft/speechdraft/internal/speechdraft/cronmanager"
	filestorage "github.com/speechdraft/speechdraft/internal/speechdraft/file-storage"
	"github.com/speechdraft/speechdraft/internal/speechdraft/maintenance"
	"github.com/speechdraft/speechdraft/internal/speechdraft/notifications"
	"gorm.io/gorm"
)

const (
	TokenExpiresPeriod        = time.Hour * 24
	RefreshTokenExpiresPeriod = time.Hour * 24 * 30

	metricsNamespace = "speechdraft"
)

// Счетчик документов, отданных клиенту, по формату, в котором они хранились
var normalizationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: metricsNamespace,
	Name:      "document_normalizations_total",
	Help:      "Speech documents served by stored format",
}, []string{"format"})

type Services struct {
	db           *gorm.DB
	cfg          *config.Config
	storage      filestorage.FileStorage
	emailService *notifications.EmailService
}

func NewServices(db *gorm.DB, cfg *config.Config, storage filestorage.FileStorage, emailService *notifications.EmailService) *Services {
	return &Services{
		db:           db,
		cfg:          cfg,
		storage:      storage,
		emailService: emailService,
	}
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "SpeechDraft")
		return next(c)
	}
}

func Server(db *gorm.DB, cfg *config.Config, version string) {
	storage, err := filestorage.New(cfg)
	if err != nil {
		slog.Error("Fail init exports storage", "err", err)
		os.Exit(1)
	}

	es := notifications.NewEmailService(cfg)
	s := NewServices(db, cfg, storage, es)

	jobRegistry := cronmanager.JobRegistry{
		"purge_expired_access": cronmanager.Job{
			Func:     maintenance.NewAccessCleaner(db).PurgeExpired,
			Schedule: "@hourly",
		},
		"exports_clean": cronmanager.Job{
			Func:     maintenance.NewExportsCleaner(db, storage).CleanExports,
			Schedule: "0 3 * * *", // daily at 03:00
		},
	}

	cronManager := cronmanager.NewCronManager(jobRegistry)
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}
	cronManager.Start()

	e := s.newEcho(version)
	e.Use(echoprometheus.NewMiddleware(metricsNamespace))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
	}()

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		for _, collector := range []prometheus.Collector{bootTimeGauge, normalizationsCounter} {
			if err := prometheus.Register(collector); err != nil {
				slog.Error("Register metric", "err", err)
				os.Exit(1)
			}
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
	}

	cronManager.Stop()
	es.Stop()
}

// newEcho создает сервер с глобальными middleware и всеми маршрутами API.
func (s *Services) newEcho(version string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		if code != http.StatusRequestEntityTooLarge {
			slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		}
		EErrorMsgStatus(c, nil, code)
	}

	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "2M",
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			// PDF уже сжат
			return c.QueryParam("format") == "pdf"
		},
	}))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	AddAuthenticationServices(s.db, e, s.cfg)

	apiGroup := e.Group("/api/")
	authGroup := apiGroup.Group("auth/",
		AuthMiddleware(AuthConfig{
			Secret: []byte(s.cfg.SecretKey),
			DB:     s.db,
		}),
	)

	AddProfileServices(authGroup)
	projectGroup := s.AddProjectServices(authGroup)
	s.AddSpeechServices(projectGroup)
	s.AddAccessServices(authGroup, projectGroup)
	s.AddQuestionnaireServices(projectGroup)
	s.AddEventServices(projectGroup)

	// Доступ гостей по ссылке-приглашению
	s.AddPublicServices(apiGroup)

	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version":   version,
			"sign_up":   s.cfg.SignUpEnable,
			"exports":   s.storage != nil,
			"occasions": occasionsList(),
		})
	})

	apiGroup.GET("_health/", func(c echo.Context) error {
		sqlDB, err := s.db.DB()
		if err != nil {
			return EErrorMsgStatus(c, err, http.StatusServiceUnavailable)
		}
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			return EErrorMsgStatus(c, err, http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	return e
}

// Проверка email на корректность
func ValidateEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Генерация пары ключей доступа
func createAccessToken(secret []byte, userId string) (*Token, *Token, error) {
	ta, err := GenJwtToken(secret, "access", userId)
	if err != nil {
		return nil, nil, err
	}

	tr, err := GenJwtToken(secret, "refresh", userId)
	if err != nil {
		return nil, nil, err
	}
	return ta, tr, err
}

func setAuthCookies(c echo.Context, accessToken *Token, refreshToken *Token) {
	c.SetCookie(authCookie("access_token", accessToken.SignedString, time.Now().Add(TokenExpiresPeriod)))
	c.SetCookie(authCookie("refresh_token", refreshToken.SignedString, time.Now().Add(RefreshTokenExpiresPeriod)))
}

func clearAuthCookies(c echo.Context) {
	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := authCookie(name, "", time.Time{})
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func authCookie(name, value string, expires time.Time) *http.Cookie {
	cookie := new(http.Cookie)
	cookie.Name = name
	cookie.Value = value
	cookie.HttpOnly = true
	cookie.Secure = true
	cookie.Path = "/"
	cookie.SameSite = http.SameSiteNoneMode
	cookie.Expires = expires
	return cookie
}

type Token struct {
	JWT          *jwt.Token
	SignedString string
	Type         string
}

// Генерация JWT ключа
func GenJwtToken(secret []byte, tokenType string, userid string) (*Token, error) {
	u, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"exp":        jwt.NewNumericDate(time.Now().Add(TokenExpiresPeriod)),
		"iat":        jwt.NewNumericDate(time.Now()),
		"jti":        fmt.Sprintf("%x", u),
		"token_type": tokenType,
		"user_id":    userid,
	}
	if tokenType == "refresh" {
		claims["exp"] = jwt.NewNumericDate(time.Now().Add(RefreshTokenExpiresPeriod))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString(secret)
	if err != nil {
		return nil, err
	}
	return &Token{
		JWT:          token,
		SignedString: signedString,
		Type:         tokenType,
	}, nil
}
