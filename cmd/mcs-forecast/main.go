package main

import (
	"errors"
	"os"

	"mcs-forecast/cmd/mcs-forecast/commands"
	"mcs-forecast/internal/simulation"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := commands.Execute(); err != nil {
		event := log.Error().Err(err)
		if errors.Is(err, simulation.ErrEmptyHistory) {
			event = event.Str("hint", "run sync first or pass --file")
		}
		event.Msg("mcs-forecast failed")
		os.Exit(1)
	}
}
