package main

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/ragchat/cli/chat"
	"github.com/malonaz/ragchat/cli/kb"
	"github.com/malonaz/ragchat/cli/sessions"
	"github.com/malonaz/ragchat/internal/configuration"
	"github.com/malonaz/ragchat/server"
)

const configFilepath = "~/.config/ragchat/config.json"

var rootCmd = &cobra.Command{
	Use:     "ragchat",
	Short:   "Chat with your knowledge bases",
	Version: "1.0",
}

func main() {
	config, err := configuration.Parse(configFilepath)
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(chat.NewCmd(config))
	rootCmd.AddCommand(chat.NewAskCmd(config))
	rootCmd.AddCommand(sessions.NewCmd(config))
	rootCmd.AddCommand(kb.NewCmd(config))
	rootCmd.AddCommand(server.NewServeCmd(config))
	rootCmd.Execute()
}
