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

// Command hgdps-blobimport reads a directory of pre-extracted changegroup
// records and writes the file revisions they describe into a repository:
// the Go stand-in for the reference revlog-to-blob importer, driven off
// JSON records in place of a revlog reader collaborator.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/basinhq/hgdps/model/hg"
	"github.com/basinhq/hgdps/service/blobstore"
	"github.com/basinhq/hgdps/service/blobstore/badgerstore"
	"github.com/basinhq/hgdps/service/blobstore/file"
	"github.com/basinhq/hgdps/service/blobstore/gcs"
	"github.com/basinhq/hgdps/service/blobstore/retry"
	"github.com/basinhq/hgdps/service/cache"
	"github.com/basinhq/hgdps/service/filelog"
	"github.com/basinhq/hgdps/service/repo"
	"github.com/basinhq/hgdps/service/upload"

	cloudstorage "cloud.google.com/go/storage"
)

func main() {
	var (
		flagBlobstore          string
		flagBucket             string
		flagChannelSize        int
		flagCommitsLimit       int
		flagPostponeCompaction bool
		flagDebug              bool
		flagPort               uint16
	)

	pflag.StringVarP(&flagBlobstore, "blobstore", "B", "files", "blobstore type: files, badger or gcs")
	pflag.StringVar(&flagBucket, "bucket", "", "bucket to use for the gcs blobstore")
	pflag.IntVar(&flagChannelSize, "channel-size", 1000, "channel size between the parsing and upload stages")
	pflag.IntVar(&flagCommitsLimit, "commits-limit", 0, "import only the first LIMIT records (0 means no limit)")
	pflag.BoolVar(&flagPostponeCompaction, "postpone-compaction", false, "(badger only) postpone value log GC while importing")
	pflag.BoolVarP(&flagDebug, "debug", "d", false, "print debug level output")
	pflag.Uint16VarP(&flagPort, "port", "p", 0, "if non-zero, serve an import status endpoint on this port")

	pflag.Parse()

	if pflag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: hgdps-blobimport [flags] INPUT OUTPUT")
		os.Exit(1)
	}
	input := pflag.Arg(0)
	output := pflag.Arg(1)

	level := zerolog.InfoLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)

	if err := run(log, input, output, flagBlobstore, flagBucket, flagChannelSize, flagCommitsLimit, flagPostponeCompaction, flagPort); err != nil {
		log.Error().Err(err).Msg("blobimport failed")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, input, output, blobstoreType, bucket string, channelSize, commitsLimit int, postponeCompaction bool, port uint16) error {
	info, err := os.Stat(input)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("input %q does not exist or is not a directory", input)
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("could not create output directory %q: %w", output, err)
	}

	blobs, closeBlobstore, err := openBlobstore(blobstoreType, bucket, output, postponeCompaction)
	if err != nil {
		return err
	}
	defer closeBlobstore()

	store, err := repo.Open(filepath.Join(output, "index"), blobs)
	if err != nil {
		return fmt.Errorf("could not open repository: %w", err)
	}
	defer store.Close()

	var status statusState
	if port != 0 {
		stop := serveStatus(log, port, &status)
		defer stop()
	}

	records, err := loadRecords(input, commitsLimit)
	if err != nil {
		return err
	}
	log.Info().Int("records", len(records)).Msg("loaded changegroup records")

	stats := cache.NewPromStats(nil)

	group, ctx := errgroup.WithContext(context.Background())
	in := make(chan hg.FilelogDeltaed, channelSize)

	group.Go(func() error {
		defer close(in)
		for _, rec := range records {
			select {
			case in <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	batch := upload.NewBatch(store)
	scheduled := 0

	group.Go(func() error {
		results := filelog.Resolve(ctx, store, stats, in)
		for res := range results {
			if res.Err != nil {
				return fmt.Errorf("could not resolve filelog: %w", res.Err)
			}
			if _, _, err := batch.Upload(ctx, res.Filelog); err != nil {
				return fmt.Errorf("could not schedule upload: %w", err)
			}
			scheduled++
			status.incr()
		}
		return batch.WaitAll(ctx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("import pipeline failed: %w", err)
	}

	if err := importHeadsAndBookmarks(context.Background(), store, input); err != nil {
		return err
	}

	if gcer, ok := blobs.(interface{ RunValueLogGC(float64) error }); ok && !postponeCompaction {
		if err := gcer.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			log.Warn().Err(err).Msg("value log GC failed")
		}
	}

	log.Info().Int("uploaded", scheduled).Msg("blobimport complete")
	return nil
}

func openBlobstore(kind, bucket, output string, postponeCompaction bool) (blobstore.Store, func(), error) {
	switch kind {
	case "files":
		s, err := file.New(filepath.Join(output, "blobs"))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open file blobstore: %w", err)
		}
		return s, func() {}, nil
	case "badger":
		s, err := badgerstore.Open(filepath.Join(output, "blobs"))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open badger blobstore: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "gcs":
		if bucket == "" {
			return nil, nil, errors.New("--bucket is required for the gcs blobstore")
		}
		client, err := cloudstorage.NewClient(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("could not create gcs client: %w", err)
		}
		s := retry.New(gcs.New(client.Bucket(bucket)))
		return s, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown blobstore type %q", kind)
	}
}

func loadRecords(input string, limit int) ([]hg.FilelogDeltaed, error) {
	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("could not read input directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == "heads.json" || name == "bookmarks.json" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	records := make([]hg.FilelogDeltaed, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(input, name))
		if err != nil {
			return nil, fmt.Errorf("could not read record %q: %w", name, err)
		}
		rec, err := parseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("could not parse record %q: %w", name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func importHeadsAndBookmarks(ctx context.Context, store *repo.Repo, input string) error {
	if raw, err := os.ReadFile(filepath.Join(input, "heads.json")); err == nil {
		var headHexes []string
		if err := json.Unmarshal(raw, &headHexes); err != nil {
			return fmt.Errorf("could not parse heads.json: %w", err)
		}
		heads := make([]hg.NodeHash, len(headHexes))
		for i, hex := range headHexes {
			node, err := hg.NodeHashFromHex(hex)
			if err != nil {
				return fmt.Errorf("invalid head %q: %w", hex, err)
			}
			heads[i] = node
		}
		if err := store.SetHeads(ctx, heads); err != nil {
			return fmt.Errorf("could not set heads: %w", err)
		}
	}

	if raw, err := os.ReadFile(filepath.Join(input, "bookmarks.json")); err == nil {
		var bookmarks map[string]string
		if err := json.Unmarshal(raw, &bookmarks); err != nil {
			return fmt.Errorf("could not parse bookmarks.json: %w", err)
		}
		for name, hex := range bookmarks {
			node, err := hg.NodeHashFromHex(hex)
			if err != nil {
				return fmt.Errorf("invalid bookmark %q: %w", name, err)
			}
			if err := store.SetBookmark(ctx, name, node); err != nil {
				return fmt.Errorf("could not set bookmark %q: %w", name, err)
			}
		}
	}

	return nil
}

type statusState struct {
	uploaded int64
}

func (s *statusState) incr() {
	atomic.AddInt64(&s.uploaded, 1)
}

func serveStatus(log zerolog.Logger, port uint16, status *statusState) func() {
	e := echo.New()
	e.HideBanner = true
	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int64{"uploaded": atomic.LoadInt64(&status.uploaded)})
	})

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("status server encountered error")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	}
}
