/*
Copyright 2025 Sniperthink Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/sniperthink/chatcore"
	"github.com/sniperthink/chatcore/config"
	"github.com/sniperthink/chatcore/database"
	"github.com/sniperthink/chatcore/internal/notification"
	"github.com/spf13/cobra"
)

// Chatcore represents the CLI application, encapsulating the root Cobra command.
type Chatcore struct {
	cmd *cobra.Command
}

// chatcoreInstance holds the runtime instance and configuration shared by the
// subcommands.
type chatcoreInstance struct {
	core *chatcore.Chatcore
	cnf  *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the core before running
// any command.
func preRun(app *chatcoreInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("chatcore.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newCore, err := setupChatcore(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.core = newCore
		app.cnf = cnf

		return nil
	}
}

// setupChatcore creates and initializes a new core instance wired to the
// configured data source.
func setupChatcore(cfg *config.Configuration) (*chatcore.Chatcore, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newCore, err := chatcore.NewChatcore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating chatcore: %v", err)
	}
	return newCore, nil
}

// NewCLI creates the command-line interface for the chatcore application.
func NewCLI() *Chatcore {
	var configFile string
	b := &chatcoreInstance{}

	var rootCmd = &cobra.Command{
		Use:   "chatcore",
		Short: "Chat event ingestion and reply engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./chatcore.json", "Configuration file for chatcore")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Chatcore{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during
// execution.
func (w Chatcore) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
