package observability

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the standard logrus logger. JSON output is used for
// the server; text output for interactive CLI commands.
func SetupLogging(out io.Writer, level string, jsonFormat bool) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}

	if jsonFormat {
		log.SetFormatter(&log.JSONFormatter{
			FieldMap: log.FieldMap{
				log.FieldKeyTime: "@timestamp",
				log.FieldKeyMsg:  "message",
			},
		})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(out)
	log.SetLevel(lvl)
	return nil
}
