package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateFileLogger returns a logger writing to <dir>/<name>_log.txt, truncating
// any previous file. An empty dir means the OS temp dir. The terminal belongs to
// the REPL or the console view, so nothing is written to stderr.
func CreateFileLogger(dir, name, level string) (*logrus.Logger, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	fileName := filepath.Join(dir, fmt.Sprintf("%s_log.txt", name))
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open/create log file: %s", fileName)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	logger.SetLevel(ParseLogLevel(level))
	return logger, nil
}

// ParseLogLevel falls back to Info on an empty or unknown level.
func ParseLogLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const RoomCodeLength = 6

// NewRoomCode returns a short uppercase alphanumeric room code. Ambiguous
// characters (0/O, 1/I) are left out.
func NewRoomCode() string {
	var sb strings.Builder
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < RoomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// Fall back to the random bits of a v4 uuid
			return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:RoomCodeLength]
		}
		sb.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return sb.String()
}

// NormalizeRoomCode uppercases and trims code, and reports whether it is a
// syntactically valid room code.
func NormalizeRoomCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != RoomCodeLength {
		return code, false
	}
	for _, r := range code {
		if !(('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')) {
			return code, false
		}
	}
	return code, true
}
