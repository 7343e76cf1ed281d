// Command cfdnsbackup downloads a zone-file export for every DNS zone on a
// Cloudflare account and writes one file per zone under ./domains/.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cfdnsbackup/cloudflare"
	"cfdnsbackup/config"
	"cfdnsbackup/exporter"
)

var errExportIncomplete = errors.New("one or more domains failed to export")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		printDiagnostic(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	logf := func(format string, a ...any) {
		fmt.Printf(format+"\n", a...)
	}

	cfgOpts := []config.Option{config.WithLogf(logf)}
	if len(args) > 0 {
		cfgOpts = append(cfgOpts, config.WithEnvFile(args[0]))
	}

	creds, err := config.Resolve(ctx, cfgOpts...)
	if err != nil {
		return err
	}

	// One client for the whole run; credentials never change mid-process.
	client, err := cloudflare.New(creds.Email, creds.APIKey, cloudflare.WithLogf(logf))
	if err != nil {
		return err
	}

	fmt.Println("Getting List of domains from Cloudflare")
	fmt.Println("=======================================")
	fmt.Println()

	zones, err := client.ListZones(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d domains.\n", len(zones))

	fmt.Println("Writing domain DNS files")

	writer := exporter.NewWriter(client, exporter.WithLogf(logf))
	if err := writer.EnsureOutputDir(); err != nil {
		return err
	}

	failures := writer.ExportAll(ctx, zones)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(failures) > 0 {
		fmt.Printf("%d of %d domains failed to export:\n", len(failures), len(zones))
		for _, failure := range failures {
			fmt.Printf("  - %s: %v\n", failure.Zone.Name, failure.Err)
		}
		return errExportIncomplete
	}

	fmt.Println("Domain DNS records complete. Please check the /domains directory for your files")
	return nil
}

// printDiagnostic maps each error class to the guidance the operator needs.
// This is the only place user-facing failure text is chosen, so every inner
// function stays exit-free and testable.
func printDiagnostic(err error) {
	var cfgErr *config.Error
	var apiErr *cloudflare.APIError

	switch {
	case errors.As(err, &cfgErr):
		for _, line := range cfgErr.Lines() {
			fmt.Println(line)
		}
	case cloudflare.IsAuthError(err):
		fmt.Println("Error: Authentication failed with Cloudflare API")
		fmt.Println("Please check that your API key and email are correct")
	case errors.As(err, &apiErr):
		fmt.Println("Error: Cloudflare API returned an unsuccessful response")
		for _, message := range apiErr.Messages() {
			fmt.Printf("  - %s\n", message)
		}
	case errors.Is(err, cloudflare.ErrDecode):
		fmt.Printf("Error: %v\n", err)
		fmt.Println("The API may have changed or returned unexpected data")
	case cloudflare.IsConnectivityError(err):
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Please check your internet connection and try again")
	default:
		fmt.Printf("Error: %v\n", err)
	}
}
