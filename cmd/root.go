// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements the zstdproxyd CLI: a thin cobra-based host
// program around package proxy (see proxy.Run), controller (the TCP
// accept-and-dispatch loop), confengine (YAML config) and logger.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zstdproxy/zstdproxy/common"
)

var rootCmd = &cobra.Command{
	Use:   "zstdproxyd",
	Short: "zstdproxyd is a bidirectional compressing stream proxy",
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := common.GetBuildInfo()
			if info.Version == "" {
				info.Version = common.Version
			}
			fmt.Printf("%s version %s (%s) built %s\n", common.App, info.Version, info.GitHash, info.Time)
		},
	})
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
