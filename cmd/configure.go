package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"github.com/pterodactyl/hangar/config"
)

var configureArgs struct {
	Host            string
	Port            string
	Data            string
	AccessDirectory string
	Override        bool
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write a configuration file for hangar",

	Run: configureCmdRun,
}

func init() {
	configureCmd.PersistentFlags().StringVar(&configureArgs.Host, "host", "", "the interface the line server should bind to")
	configureCmd.PersistentFlags().StringVar(&configureArgs.Port, "port", "", "the port the line server should bind to")
	configureCmd.PersistentFlags().BoolVar(&configureArgs.Override, "override", false, "override an existing configuration")
}

func configureCmdRun(cmd *cobra.Command, args []string) {
	if _, err := os.Stat(configPath); err == nil && !configureArgs.Override {
		if err := survey.AskOne(&survey.Confirm{Message: "Override existing configuration file"}, &configureArgs.Override); err != nil {
			if err == terminal.InterruptErr {
				return
			}
			panic(err)
		}
		if !configureArgs.Override {
			fmt.Println("Aborted.")
			os.Exit(1)
		}
	}

	c, err := config.NewAtPath(configPath)
	if err != nil {
		panic(err)
	}

	var questions []*survey.Question
	if configureArgs.Host == "" {
		questions = append(questions, &survey.Question{
			Name:   "Host",
			Prompt: &survey.Input{Message: "Listen address: ", Default: c.Server.Host},
			Validate: func(ans interface{}) error {
				if str, ok := ans.(string); ok && !govalidator.IsHost(str) {
					return fmt.Errorf("%q is not a valid host", str)
				}
				return nil
			},
		})
	}
	if configureArgs.Port == "" {
		questions = append(questions, &survey.Question{
			Name:   "Port",
			Prompt: &survey.Input{Message: "Listen port: ", Default: strconv.Itoa(c.Server.Port)},
			Validate: func(ans interface{}) error {
				if str, ok := ans.(string); ok && !govalidator.IsPort(str) {
					return fmt.Errorf("%q is not a valid port", str)
				}
				return nil
			},
		})
	}
	questions = append(questions,
		&survey.Question{
			Name:     "Data",
			Prompt:   &survey.Input{Message: "Storage directory: ", Default: c.System.Data},
			Validate: survey.Required,
		},
		&survey.Question{
			Name:     "AccessDirectory",
			Prompt:   &survey.Input{Message: "User table directory: ", Default: c.System.AccessDirectory},
			Validate: survey.Required,
		},
	)

	if err := survey.Ask(questions, &configureArgs); err != nil {
		if err == terminal.InterruptErr {
			return
		}
		panic(err)
	}

	port, err := strconv.Atoi(configureArgs.Port)
	if err != nil {
		fmt.Println("Invalid port:", err)
		os.Exit(1)
	}

	c.Server.Host = configureArgs.Host
	c.Server.Port = port
	c.System.Data = configureArgs.Data
	c.System.AccessDirectory = configureArgs.AccessDirectory

	if err := config.WriteToDisk(c); err != nil {
		panic(err)
	}

	fmt.Println("Successfully configured hangar.")
}
