package util

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMalformedPayload = errors.New("malformed obfuscated payload")
)

// ObfuscatedPayload - обертка значения с меткой времени и nonce.
// Метка времени проверяется сервером против окна свежести,
// целостность обеспечивает подпись запроса, не сама обфускация.
type ObfuscatedPayload struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
}

// Obfuscator - обратимое преобразование, скрывающее исходное значение
// на проводе: JSON -> base64 -> XOR с фиксированным ключом -> base64.
// Это не криптография: ключ поставляется вместе с клиентом. Назначение -
// чтобы пароль не появлялся в теле запроса открытым текстом;
// конфиденциальность по-прежнему обеспечивает TLS.
type Obfuscator struct {
	key []byte
}

// NewObfuscator создает Obfuscator. Ключ передается явно из конфигурации.
func NewObfuscator(key string) (*Obfuscator, error) {
	if len(key) == 0 {
		return nil, errors.New("obfuscation key must not be empty")
	}
	return &Obfuscator{key: []byte(key)}, nil
}

// Encode упаковывает значение: JSON-обертка, base64, XOR, снова base64
func (o *Obfuscator) Encode(value string) (string, error) {
	payload := ObfuscatedPayload{
		Value:     value,
		Timestamp: time.Now().Unix(),
		Nonce:     uuid.NewString(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	inner := base64.StdEncoding.EncodeToString(raw)
	xored := o.xor([]byte(inner))

	return base64.StdEncoding.EncodeToString(xored), nil
}

// Decode - точная инверсия Encode
func (o *Obfuscator) Decode(encoded string) (*ObfuscatedPayload, error) {
	xored, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedPayload
	}

	inner := o.xor(xored)

	raw, err := base64.StdEncoding.DecodeString(string(inner))
	if err != nil {
		return nil, ErrMalformedPayload
	}

	var payload ObfuscatedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrMalformedPayload
	}

	return &payload, nil
}

// xor накладывает повторяющийся ключ; операция симметрична
func (o *Obfuscator) xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ o.key[i%len(o.key)]
	}
	return out
}
