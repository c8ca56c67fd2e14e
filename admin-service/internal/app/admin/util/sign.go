package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Signer подписывает и проверяет запросы по схеме HMAC-SHA256 над
// отсортированной строкой параметров. Ключ выводится из мастер-секрета
// отдельно для каждого пользователя и нигде не хранится: компрометация
// одного производного ключа не раскрывает ни мастер-секрет, ни ключи
// других пользователей.
type Signer struct {
	masterSecret []byte
}

// NewSigner создает Signer. Мастер-секрет передается явно из конфигурации.
func NewSigner(masterSecret string) *Signer {
	return &Signer{masterSecret: []byte(masterSecret)}
}

// UserKey выводит ключ пользователя: HMAC(masterSecret, "user_"+userID)
func (s *Signer) UserKey(userID int64) []byte {
	h := hmac.New(sha256.New, s.masterSecret)
	h.Write([]byte("user_" + strconv.FormatInt(userID, 10)))
	return h.Sum(nil)
}

// Sign вычисляет подпись параметров запроса ключом пользователя
func (s *Signer) Sign(userID int64, params map[string]interface{}) string {
	mac := hmac.New(sha256.New, s.UserKey(userID))
	mac.Write([]byte(CanonicalString(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify пересчитывает подпись и сравнивает за константное время
func (s *Signer) Verify(userID int64, params map[string]interface{}, signature string) bool {
	expected := s.Sign(userID, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CanonicalString строит каноническую строку подписи: поле signature
// отбрасывается, остальные ключи сортируются лексикографически и
// соединяются как key=value&... Вложенные объекты сериализуются в JSON.
func CanonicalString(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 128)
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, '&')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		buf = append(buf, canonicalValue(params[k])...)
	}
	return string(buf)
}

// canonicalValue приводит значение параметра к строке.
// JSON-числа представляются без экспоненты и без хвостовых нулей,
// чтобы клиент и сервер получали одинаковую строку.
func canonicalValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		// Объекты и массивы сериализуются в JSON
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
