// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rangectl",
	Short: "Operator CLI for the AleutianRange scoring service",
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run an immediate expiration sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := postJSON(config.APIURL+"/v1/expectations/sweep", nil)
		if err != nil {
			return fmt.Errorf("sweep request failed: %w", err)
		}
		fmt.Println(body)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <injectId>",
	Short: "Print the bucket summary for one inject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := getJSON(fmt.Sprintf("%s/v1/injects/%s/results", config.APIURL, args[0]))
		if err != nil {
			return fmt.Errorf("summary request failed: %w", err)
		}
		fmt.Println(body)
		return nil
	},
}

var globalSummaryCmd = &cobra.Command{
	Use:   "global <injectId>...",
	Short: "Print the combined bucket summary across several injects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(map[string][]string{"inject_ids": args})
		if err != nil {
			return err
		}
		body, err := postJSON(config.APIURL+"/v1/injects/results", payload)
		if err != nil {
			return fmt.Errorf("global summary request failed: %w", err)
		}
		fmt.Println(body)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(globalSummaryCmd)
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func getJSON(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func postJSON(url string, payload []byte) (string, error) {
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return readBody(resp)
}

func readBody(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("server returned %s: %s", resp.Status, string(data))
	}
	return string(data), nil
}
