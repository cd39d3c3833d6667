// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command rangectl is the operator CLI for the scoring service: manual
// expiration sweeps and inject result summaries against a running server.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the rangectl configuration, read from rangectl.yaml.
type Config struct {
	// APIURL is the base URL of the scoring server.
	APIURL string `yaml:"api_url"`
}

var config Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			// No config file is fine, fall back to the default URL
			config.APIURL = "http://localhost:12310"
			return
		}
		if err := yaml.Unmarshal(yamlFile, &config); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		if config.APIURL == "" {
			config.APIURL = "http://localhost:12310"
		}
	}
	rootCmd.PersistentFlags().String("config", "rangectl.yaml", "path to the rangectl config file")
}
