package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateAnalysisID generates an analysis ID with a timestamp prefix
func GenerateAnalysisID() string {
	timestamp := time.Now().Format("20060102-150405")
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("analysis-%s-%s", timestamp, suffix)
}

// GenerateID returns a random RFC 4122 UUID string.
func GenerateID() string {
	return uuid.NewString()
}
