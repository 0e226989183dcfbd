// Чтение переменных окружения.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Exist возвращает true, если переменная окружения задана (даже пустая).
func Exist(key string) bool {
	if key == "" {
		return false
	}
	_, exist := os.LookupEnv(key)
	return exist
}

// GetEnv возвращает значение переменной без пробелов по краям.
func GetEnv(key string) string {
	val, _ := os.LookupEnv(key)
	return strings.TrimSpace(val)
}

// GetIntEnv возвращает числовое значение переменной. При ошибке разбора возвращается 0
func GetIntEnv(key string) int {
	v, err := strconv.Atoi(GetEnv(key))
	if err != nil {
		return 0
	}
	return v
}

// GetBoolEnv возвращает логическое значение переменной. При ошибке разбора возвращается false
func GetBoolEnv(key string) bool {
	v, err := strconv.ParseBool(GetEnv(key))
	if err != nil {
		return false
	}
	return v
}
