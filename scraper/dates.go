package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pevans/newshound/logger"
)

// Filler words that mean "ago" in Romanian relative dates.
var agoFillers = []string{"acum", "în urmă", "in urma"}

// relativeUnits are checked in order; the first unit with a marker present
// in the text wins.
var relativeUnits = []struct {
	markers []string
	unit    time.Duration
}{
	{markers: []string{"minut"}, unit: time.Minute},
	{markers: []string{"ora", "oră", "ore"}, unit: time.Hour},
	{markers: []string{"zi"}, unit: 24 * time.Hour},
}

var digitsPattern = regexp.MustCompile(`\d+`)

// DateNormalizer converts relative Romanian date phrases ("acum 5 minute",
// "3 ore în urmă") into absolute RFC 3339 timestamps.
type DateNormalizer struct {
	Now func() time.Time
	log *zap.Logger
}

// NewDateNormalizer creates a normalizer anchored to the wall clock.
func NewDateNormalizer(log *zap.Logger) *DateNormalizer {
	return &DateNormalizer{
		Now: time.Now,
		log: logger.OrNop(log),
	}
}

// Normalize converts raw into an absolute timestamp when it is a relative
// phrase. Anything without a relative marker is returned unchanged; a
// relative phrase without a number yields "".
func (n *DateNormalizer) Normalize(raw, source string) string {
	text := strings.ToLower(raw)
	for _, filler := range agoFillers {
		text = strings.ReplaceAll(text, filler, "")
	}
	text = strings.TrimSpace(text)

	for _, ru := range relativeUnits {
		if !containsAny(text, ru.markers) {
			continue
		}
		digits := digitsPattern.FindString(text)
		amount, err := strconv.Atoi(digits)
		if err != nil {
			n.logger().Warn("date parsing failed",
				zap.String("source", source),
				zap.String("date", raw),
				zap.Error(err),
			)
			return ""
		}
		if int64(amount) > math.MaxInt64/int64(ru.unit) {
			n.logger().Warn("date parsing failed",
				zap.String("source", source),
				zap.String("date", raw),
				zap.String("reason", "offset out of range"),
			)
			return ""
		}
		return n.now().Add(-time.Duration(amount) * ru.unit).Format(time.RFC3339)
	}

	// Absolute dates pass through untouched
	return raw
}

func (n *DateNormalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

func (n *DateNormalizer) logger() *zap.Logger {
	return logger.OrNop(n.log)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
