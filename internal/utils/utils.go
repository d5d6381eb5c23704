package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var Log = logrus.New()

var inrLocale = language.MustParse("en-IN")

// SetLogLevel configures the shared logger. Unknown levels are rejected so a
// typo on the command line does not silently hide warnings.
func SetLogLevel(level string) error {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		return fmt.Errorf("bad log level %q (available: debug, info, warn, error, fatal)", level)
	}
	return nil
}

// FormatINR renders an amount with Indian digit grouping, e.g. 125000 -> "₹1,25,000".
func FormatINR(amount int) string {
	p := message.NewPrinter(inrLocale)
	if amount < 0 {
		return p.Sprintf("-₹%d", -amount)
	}
	return p.Sprintf("₹%d", amount)
}
