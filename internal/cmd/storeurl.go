package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/output"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
)

func newStoreURLCmd() *cobra.Command {
	var flags storeurl.Config

	cmd := &cobra.Command{
		Use:   "store-url",
		Short: "Print the store link for a platform",
		Long: `Store-url resolves the storefront link for --platform (or the detected
platform). Explicit URLs win over IDs; the web platform has no store link.

Without any store flags the store settings come from the Nudgefile and its
release source.

Examples:
  nudge store-url --platform ios --app-store-id 123456789
  nudge store-url --platform android --package com.example.app
  nudge store-url --platform android`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreURL(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.IOSAppStoreID, "app-store-id", "", "iOS App Store ID")
	cmd.Flags().StringVar(&flags.AndroidPackageName, "package", "", "Android package name")
	cmd.Flags().StringVar(&flags.IOSStoreURL, "ios-url", "", "Explicit iOS store URL")
	cmd.Flags().StringVar(&flags.AndroidStoreURL, "android-url", "", "Explicit Android store URL")

	return cmd
}

func runStoreURL(cmd *cobra.Command, cfg storeurl.Config) error {
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}

	p := platform.Detect()
	if platformName != "" {
		if p, err = platform.Parse(platformName); err != nil {
			return err
		}
	}

	if cfg.IsZero() {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close(cmd.Context()) }()

		if cfg, err = s.source.AppStoreConfig(cmd.Context()); err != nil {
			return err
		}
		if platformName == "" {
			if p, err = s.engine.Platform(cmd.Context()); err != nil {
				return err
			}
		}
	}

	url := storeurl.Resolve(p, cfg)
	if !w.Structured() {
		if url == "" {
			return fmt.Errorf("no store link for platform %s", p)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), url)
		return err
	}
	return w.Write(output.KeyValues{
		{Key: "platform", Value: p},
		{Key: "store_url", Value: url},
	})
}
