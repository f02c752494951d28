package main

import (
	"fmt"
	"log"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/mail"
	"clubhouse/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if err := database.Seed(db); err != nil {
		log.Fatal(err)
	}

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		mailer = mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	}

	app := server.New(cfg, db, mailer)

	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)))
}
