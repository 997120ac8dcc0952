package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup はグローバルロガーを設定します
// format が "text" の場合はコンソール向けの出力、それ以外はJSONで出力します
func Setup(level, format string) {
	SetupWithWriter(level, format, os.Stdout)
}

// SetupWithWriter は出力先を指定してグローバルロガーを設定します
func SetupWithWriter(level, format string, out io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "sbcntr-rendezvous").
		Logger()
}
