package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// New returns "<PREFIX>-<unix millis>-<random hex>". The millisecond part
// keeps ids roughly time ordered for people reading receipts.
func New(prefix string) string {
	prefix = strings.ToUpper(prefix)
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}
