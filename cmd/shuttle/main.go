package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	app := &cli.App{
		Name:  "shuttle",
		Usage: "campus shuttle itinerary and timetable service",
		Commands: []*cli.Command{
			serveCommand(),
			validateCommand(),
			normalizeCommand(),
			nextDepartureCommand(),
			arrivalsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
