package orders

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const refAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderRef builds the short client-displayable order reference:
// 808-<base36 millis>-<5 random base36 chars>. Uniqueness is enforced
// by the orders.order_ref index; callers retry on collision.
func NewOrderRef(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("808-")
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	sb.WriteByte('-')
	for i := 0; i < 5; i++ {
		sb.WriteByte(refAlphabet[rand.Intn(len(refAlphabet))])
	}
	return sb.String()
}
