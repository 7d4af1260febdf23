// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/oneconcern/chunkfs/pkg/cdcfs"
	"github.com/oneconcern/chunkfs/pkg/chunker"
	"github.com/oneconcern/chunkfs/pkg/chunker/fixed"
	"github.com/oneconcern/chunkfs/pkg/chunker/rolling"
	"github.com/oneconcern/chunkfs/pkg/dlogger"
	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
	"github.com/oneconcern/chunkfs/pkg/store"
	"github.com/oneconcern/chunkfs/pkg/store/badgerdb"
	"github.com/oneconcern/chunkfs/pkg/store/inmem"
	"github.com/oneconcern/chunkfs/pkg/store/localfs"
)

func newBaseStore() (store.IterableDatabase, error) {
	switch backend := viper.GetString("store"); backend {
	case "inmem":
		return inmem.New(), nil
	case "badger":
		return badgerdb.New(filepath.Join(viper.GetString("dir"), "badger"))
	case "localfs":
		fs := afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(viper.GetString("dir"), "objects"))
		return localfs.New(fs), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newChunker() (func() chunker.Chunker, error) {
	switch algo := viper.GetString("chunker"); algo {
	case "fixed":
		size := viper.GetInt("chunk-size")
		return func() chunker.Chunker { return fixed.New(size) }, nil
	case "rolling":
		minSize := viper.GetInt("min-chunk")
		avgSize := viper.GetInt("avg-chunk")
		maxSize := viper.GetInt("max-chunk")
		return func() chunker.Chunker { return rolling.New(minSize, avgSize, maxSize) }, nil
	default:
		return nil, fmt.Errorf("unknown chunker %q", algo)
	}
}

func newFileSystem(withScrubber bool) (*cdcfs.FileSystem, error) {
	base, err := newBaseStore()
	if err != nil {
		return nil, err
	}

	logger, err := dlogger.GetLogger(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	h := hasher.NewBlake2b()
	if withScrubber {
		return cdcfs.NewWithScrubber(base, inmem.New(), scrub.NewFrequency(2), h, cdcfs.Logger(logger))
	}
	return cdcfs.New(base, h, cdcfs.Logger(logger))
}
