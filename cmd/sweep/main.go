// Command sweep sends due-date reminders and overdue notices once and exits.
//
// Schedule it once per day, e.g. from cron:
//
//	5 0 * * * /usr/local/bin/sweep
//
// Reminders are keyed by loan, bucket and calendar day, so a second run on the
// same day only delivers what the first one missed. With REDIS_ADDR set, two
// runners started for the same day do not overlap.
package main

import (
	stdLog "log"

	"github.com/Astemirdum/library-circulation/circulation/app"
	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("load envs from .env ", zap.Error(err))
	}
	if err := app.RunSweep(config.NewConfig()); err != nil {
		stdLog.Fatal("sweep ", err)
	}
}
