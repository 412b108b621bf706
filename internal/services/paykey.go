package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const payKeyTimeLayout = "20060102150405"

// GeneratePayKey returns now at second precision followed by three random
// lowercase hex characters, e.g. "20240520123456abc".
func GeneratePayKey(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.Format(payKeyTimeLayout) + random[2:5]
}
