// Copyright 2024 The gofuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command gofusemount mounts the hellofs demo file system on a directory,
// exercising the gofuse library end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/masnagam/gofuse"
	"github.com/masnagam/gofuse/examples/hellofs"
)

var (
	options      string
	concurrent   bool
	debugLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "gofusemount [flags] mountpoint",
	Short: "Mount the gofuse hellofs demo file system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&options, "options", "o", "", "comma-separated mount options passed to fusermount")
	rootCmd.Flags().BoolVar(&concurrent, "concurrent", false, "dispatch requests on a worker goroutine per request instead of serially")
	rootCmd.Flags().BoolVar(&debugLogging, "debug", false, "enable debug-level logging, including every reply sent with an error")
}

func run(dir string) error {
	logger := logrus.New()
	if debugLogging {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	mode := fuse.DispatchSingleThreaded
	if concurrent {
		mode = fuse.DispatchConcurrent
	}

	cfg := &fuse.MountConfig{
		Options: options,
		Kernel:  fuse.DefaultKernelConfig(),
		Mode:    mode,
		Logger:  logger.WithField("component", "gofusemount"),
	}

	mfs, err := fuse.Mount(dir, hellofs.New(), cfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	logger.Infof("mounted hellofs on %s", dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("received signal, unmounting")
		if err := fuse.Unmount(dir); err != nil {
			logger.WithError(err).Error("unmount failed")
		}
	}()

	return mfs.Join(context.Background())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
