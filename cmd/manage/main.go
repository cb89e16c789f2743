// Lambda entrypoint for the teacher management endpoints.
package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/edusys/gradesystem/gradestore"
	"github.com/edusys/gradesystem/internal/config"
	"github.com/edusys/gradesystem/internal/gradedb"
	"github.com/edusys/gradesystem/internal/manage"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg)

	store := gradedb.New(gradestore.New().Table(cfg.TableName))

	h := manage.New(store, log)

	lambda.Start(h.Handle)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("handler", "manage").Logger()
}
