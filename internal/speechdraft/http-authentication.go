package speechdraft

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/speechdraft/speechdraft/internal/speechdraft/apierrors"
	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/speechdraft/speechdraft/internal/speechdraft/dao"
	stack_error "github.com/speechdraft/speechdraft/internal/speechdraft/stack-error"
	"gorm.io/gorm"
)

type Authentication struct {
	db     *gorm.DB
	cfg    *config.Config
	secret []byte
}

type AuthContext struct {
	echo.Context
	User         *dao.User
	AccessToken  *Token
	RefreshToken *Token
}

type AuthConfig struct {
	Secret  []byte
	DB      *gorm.DB
	Skipper middleware.Skipper
}

// AuthMiddleware проверяет JWT из заголовка Authorization: Bearer или из cookies.
// Просроченный токен доступа продлевается по refresh токену из cookies.
func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}

			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			var refreshToken *Token
			var accessToken *Token

			schema, tokenString, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if ok {
				if strings.TrimSpace(schema) != "Bearer" {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
				accessToken = &Token{SignedString: strings.TrimSpace(tokenString), Type: "access"}
			} else {
				if accessCookie, err := c.Cookie("access_token"); err == nil && accessCookie.Value != "" {
					accessToken = &Token{SignedString: accessCookie.Value, Type: "access"}
				}
				if refreshCookie, err := c.Cookie("refresh_token"); err == nil && refreshCookie.Value != "" {
					refreshToken = &Token{SignedString: refreshCookie.Value, Type: "refresh"}
				}
				if refreshToken == nil && accessToken == nil {
					return EErrorDefined(c, apierrors.ErrAccessTokenRequired)
				}
			}

			keyFunc := func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return config.Secret, nil
			}

			var accessError error
			if accessToken != nil {
				accessToken.JWT, accessError = jwt.Parse(accessToken.SignedString, keyFunc)
			}

			if refreshToken != nil {
				var refreshError error
				refreshToken.JWT, refreshError = jwt.Parse(refreshToken.SignedString, keyFunc)
				if refreshError != nil {
					if accessToken == nil || accessError != nil {
						return EErrorDefined(c, apierrors.ErrTokenInvalid)
					}
					refreshToken = nil
				}
			}

			var user *dao.User
			var err error

			if errors.Is(accessError, jwt.ErrTokenExpired) || accessToken == nil {
				accessToken, refreshToken, user, err = config.tokenProlong(c, refreshToken)
				if user == nil {
					return err
				}
			} else if accessError != nil {
				return EErrorDefined(c, apierrors.ErrTokenInvalid)
			} else {
				user, err = config.tokenUser(accessToken, "access")
				if err != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}

			if !user.IsActive {
				clearAuthCookies(c)
				return EErrorDefined(c, apierrors.ErrUserInactive)
			}

			if err := dao.TouchLastActive(config.DB, user.ID); err != nil {
				stack_error.GetError(c, stack_error.TrackErrorStack(err).AddContext("user_id", user.ID))
			}

			return next(AuthContext{c, user, accessToken, refreshToken})
		}
	}
}

// tokenUser возвращает пользователя из claims проверенного токена.
func (a *AuthConfig) tokenUser(token *Token, tokenType string) (*dao.User, error) {
	claims, ok := token.JWT.Claims.(jwt.MapClaims)
	if !ok || !token.JWT.Valid {
		return nil, apierrors.ErrTokenInvalid
	}
	if t, _ := claims["token_type"].(string); t != tokenType {
		return nil, apierrors.ErrTokenInvalid
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, apierrors.ErrTokenInvalid
	}

	var user dao.User
	if err := a.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// tokenProlong выдает новую пару токенов по refresh токену и записывает их в cookies.
func (a *AuthConfig) tokenProlong(c echo.Context, token *Token) (*Token, *Token, *dao.User, error) {
	if token == nil || token.JWT == nil {
		return nil, nil, nil, EErrorDefined(c, apierrors.ErrTokenExpired)
	}

	user, err := a.tokenUser(token, "refresh")
	if err != nil {
		return nil, nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	accessToken, refreshToken, err := createAccessToken(a.Secret, user.ID)
	if err != nil {
		return nil, nil, nil, EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)
	return accessToken, refreshToken, user, nil
}

func AddAuthenticationServices(db *gorm.DB, e *echo.Echo, cfg *config.Config) *Authentication {
	ret := &Authentication{db: db, cfg: cfg, secret: []byte(cfg.SecretKey)}

	e.POST("api/sign-in/", ret.emailLogin)
	e.POST("api/sign-up/", ret.signUp)
	e.POST("api/sign-out/", ret.signOut)
	return ret
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// emailLogin аутентифицирует пользователя по email и паролю.
// @id emailLogin
// @Summary Пользователи (управление доступом): вход пользователя
// @Description Аутентифицирует пользователя по email и паролю, выдает токены в ответе и в cookies.
// @Tags Users
// @Accept json
// @Produce json
// @Param data body LoginRequest true "Данные для входа пользователя"
// @Success 200 {object} map[string]interface{} "Токены доступа и информация о пользователе"
// @Failure 400 {object} apierrors.DefinedError "Некорректные данные запроса"
// @Failure 401 {object} apierrors.DefinedError "Неверный email или пароль, либо пользователь заблокирован"
// @Failure 500 {object} apierrors.DefinedError "Внутренняя ошибка сервера"
// @Router /api/sign-in/ [post]
func (a *Authentication) emailLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidRequestBody)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}

	if !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrInvalidEmail.WithFormattedMessage(req.Email))
	}

	user, err := dao.GetUserByEmail(a.db, req.Email)
	if err != nil {
		return notFoundOr(c, err, apierrors.ErrFailedLogin)
	}

	if !dao.CheckPassword(req.Password, user.Password) {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	if !user.IsActive {
		return EErrorDefined(c, apierrors.ErrUserInactive)
	}

	return a.issueTokens(c, http.StatusOK, user)
}

type SignUpRequest struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"password"`
	FirstName string `json:"first_name" validate:"personName"`
	LastName  string `json:"last_name" validate:"personName"`
}

// signUp регистрирует пользователя, если регистрация разрешена.
// @id signUp
// @Summary Пользователи (управление доступом): регистрация
// @Description Регистрирует пользователя, если регистрация включена, и сразу выдает токены.
// @Tags Users
// @Accept json
// @Produce json
// @Param data body SignUpRequest true "Данные нового пользователя"
// @Success 201 {object} map[string]interface{} "Токены доступа и информация о пользователе"
// @Failure 400 {object} apierrors.DefinedError "Ошибка запроса или валидации данных"
// @Failure 403 {object} apierrors.DefinedError "Регистрация отключена"
// @Failure 409 {object} apierrors.DefinedError "Пользователь с таким email уже существует"
// @Router /api/sign-up/ [post]
func (a *Authentication) signUp(c echo.Context) error {
	if !a.cfg.SignUpEnable {
		return EErrorDefined(c, apierrors.ErrSignupDisabled)
	}

	var req SignUpRequest
	if err := bindRequest(c, &req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrInvalidEmail.WithFormattedMessage(req.Email))
	}

	if _, err := dao.GetUserByEmail(a.db, req.Email); err == nil {
		return EErrorDefined(c, apierrors.ErrUserAlreadyExist)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return EError(c, err)
	}

	user := dao.User{
		ID:        dao.GenID(),
		Email:     req.Email,
		Password:  dao.GenPasswordHash(req.Password),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		IsActive:  true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return EErrorDefined(c, apierrors.ErrUserAlreadyExist)
		}
		return EError(c, err)
	}

	return a.issueTokens(c, http.StatusCreated, &user)
}

// signOut godoc
// @id signOut
// @Summary Пользователи (управление доступом): выход
// @Description Удаляет cookies с токенами.
// @Tags Users
// @Produce json
// @Success 200 "Выход выполнен"
// @Router /api/sign-out/ [post]
func (a *Authentication) signOut(c echo.Context) error {
	clearAuthCookies(c)
	return c.NoContent(http.StatusOK)
}

func (a *Authentication) issueTokens(c echo.Context, status int, user *dao.User) error {
	tm := time.Now()
	user.LastActive = &tm
	if err := a.db.Model(user).UpdateColumn("last_active", tm).Error; err != nil {
		return EError(c, err)
	}

	accessToken, refreshToken, err := createAccessToken(a.secret, user.ID)
	if err != nil {
		return EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(status, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user,
	})
}

// AddProfileServices маршруты текущего пользователя.
func AddProfileServices(g *echo.Group) {
	g.GET("users/me/", getCurrentUser)
}

// getCurrentUser godoc
// @id getCurrentUser
// @Summary Пользователи: текущий пользователь
// @Description Возвращает профиль пользователя, от имени которого выполнен запрос.
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dao.User "Текущий пользователь"
// @Failure 401 {object} apierrors.DefinedError "Пользователь не авторизован"
// @Router /api/auth/users/me/ [get]
func getCurrentUser(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(AuthContext).User)
}
