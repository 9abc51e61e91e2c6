package events_test

import (
	"io"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }
