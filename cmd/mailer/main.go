package main

import (
	stdLog "log"

	"github.com/Astemirdum/library-circulation/mailer/app"
	"github.com/Astemirdum/library-circulation/mailer/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("load envs from .env ", zap.Error(err))
	}
	if err := app.Run(config.NewConfig()); err != nil {
		stdLog.Fatal("mailer ", err)
	}
}
