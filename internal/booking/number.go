package booking

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewNumber генерирует человекочитаемый номер брони: "BK" + миллисекунды
// в base36 + случайный суффикс. Уникальность в рамках салона обеспечивает
// уникальный индекс (merchant_id, booking_number).
func NewNumber(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("BK")
	sb.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	for range 4 {
		sb.WriteByte(numberAlphabet[rand.IntN(len(numberAlphabet))])
	}
	return sb.String()
}
