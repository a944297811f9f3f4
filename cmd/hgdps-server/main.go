// Copyright 2024 Basin Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/ziflex/lecho/v2"

	"github.com/basinhq/hgdps/service/blobstore/file"
	"github.com/basinhq/hgdps/service/repo"
	"github.com/basinhq/hgdps/service/wireproto"
)

func main() {

	// Signal catching for clean shutdown.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	var (
		flagLog   string
		flagIndex string
		flagBlobs string
		flagPort  uint16
	)

	pflag.StringVarP(&flagIndex, "index", "i", "index", "database directory for changeset/bookmark metadata")
	pflag.StringVarP(&flagBlobs, "blobs", "b", "blobs", "directory for the file content blobstore")
	pflag.StringVarP(&flagLog, "log", "l", "info", "log output level")
	pflag.Uint16VarP(&flagPort, "port", "p", 8000, "port to serve the wireprotocol HTTP API on")

	pflag.Parse()

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLog)
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse log level")
	}
	log = log.Level(level)

	blobs, err := file.New(flagBlobs)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open blobstore")
	}

	store, err := repo.Open(flagIndex, blobs)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open repository")
	}

	handler := wireproto.NewHandler(wireproto.New(store))

	e := echo.New()
	e.HideBanner = true
	e.Logger = lecho.From(log)
	handler.Register(e)

	// This section launches the HTTP server in its own goroutine, so it
	// can run concurrently. Afterwards, we wait for an interrupt signal
	// in order to proceed with the next section.
	go func() {
		log.Info().Uint16("port", flagPort).Msg("starting wireprotocol HTTP API")
		err := e.Start(fmt.Sprintf(":%d", flagPort))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("wireprotocol HTTP API encountered error")
		}
		log.Info().Msg("wireprotocol HTTP API stopped")
	}()

	<-sig

	log.Info().Msg("startup complete, shutting down")

	// The following code starts a shutdown with a certain timeout and
	// makes sure the server shuts down within the allocated time.
	// Otherwise, it forces the shutdown and logs an error.
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("could not shut down HTTP API cleanly")
		}
	}()
	go func() {
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(1)
	}()

	wg.Wait()

	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("could not close repository")
	}

	os.Exit(0)
}
