package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth проверяет X-Admin-Token header.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Admin-Token")

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "X-Admin-Token header required",
				},
			})
			c.Abort()
			return
		}

		if token != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "invalid admin token",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TelegramAuth проверяет X-Telegram-Init-Data header по схеме Mini App.
// Пустой botToken отключает проверку (локальная разработка).
func TelegramAuth(botToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if botToken == "" {
			c.Next()
			return
		}

		initData := c.GetHeader("X-Telegram-Init-Data")
		if initData == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "X-Telegram-Init-Data header required",
				},
			})
			c.Abort()
			return
		}

		if !ValidateInitData(initData, botToken) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "invalid Telegram init data",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ValidateInitData сверяет подпись initData Telegram Mini App:
// секрет = HMAC-SHA256("WebAppData", botToken), строка проверки —
// отсортированные пары k=v без поля hash, соединённые переводами строки.
// https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
func ValidateInitData(initData, botToken string) bool {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return false
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return false
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	calculated := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(calculated), []byte(receivedHash))
}
