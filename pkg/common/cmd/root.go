// Copyright © 2024 Plume. All rights reserved.
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

// Package cmd carries the cobra plumbing shared by every plume binary:
// config-folder and instance-index flags plus logger bootstrap.
package cmd

import (
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/spf13/cobra"

	"github.com/plumeim/plume-im-server/pkg/common/config"
)

const (
	FlagConfigFolderPath = "config_folder_path"
	FlagIndex            = "index"

	Version = "1.0.0"

	loggerPrefixName = "plume-im"
)

// RootCmd wraps one binary's cobra command. The caller assigns RunE and then
// calls Execute.
type RootCmd struct {
	Command     cobra.Command
	processName string
}

func NewRootCmd(processName string) *RootCmd {
	r := &RootCmd{processName: processName}
	r.Command = cobra.Command{
		Use:           processName,
		Short:         "Start the " + processName + " server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	r.Command.Flags().StringP(FlagConfigFolderPath, "c", "", "path of the configuration folder")
	r.Command.Flags().IntP(FlagIndex, "i", 0, "process index")
	return r
}

func (r *RootCmd) Execute() error {
	return r.Command.Execute()
}

// InitLog initialises the process-wide structured logger from config.
func (r *RootCmd) InitLog(conf *config.Log) error {
	return log.InitLoggerFromConfig(
		loggerPrefixName,
		r.processName,
		"", "",
		conf.RemainLogLevel,
		conf.IsStdout,
		conf.IsJson,
		conf.StorageLocation,
		conf.RemainRotationCount,
		conf.RotationTime,
		Version,
		conf.IsSimplify,
	)
}

func ConfigFolderPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString(FlagConfigFolderPath)
	if err != nil {
		return "", errs.WrapMsg(err, "get config folder path flag failed")
	}
	return path, nil
}

func Index(cmd *cobra.Command) (int, error) {
	index, err := cmd.Flags().GetInt(FlagIndex)
	if err != nil {
		return 0, errs.WrapMsg(err, "get index flag failed")
	}
	return index, nil
}
