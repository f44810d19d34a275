// Command papyrus is the operator CLI. It talks to the papyrus API server
// for ingesting files, reconstructing per-file status and purging blobs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "papyrus: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "papyrus",
		Short:        "papyrus operator CLI",
		Long:         `papyrus ingests files, reconstructs per-file extraction status from the event log, and purges blobs.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Base URL of the papyrus API server")
	cmd.AddCommand(
		newStatusCmd(),
		newIngestCmd(),
		newDeleteCmd(),
	)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var prefix bool
	cmd := &cobra.Command{
		Use:   "status <ingest-id>",
		Short: "Reconstruct per-file status for an ingestion batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/ingests/%s/status", serverURL, args[0])
			if prefix {
				url += "?prefix=1"
			}
			return getJSON(cmd.Context(), url, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&prefix, "prefix", false, "Match every batch sharing the id prefix")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var ingestID string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a file and enqueue its extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/blobs", serverURL)
			if ingestID != "" {
				url += "?ingest=" + ingestID
			}
			return uploadFile(cmd.Context(), url, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&ingestID, "ingest", "", "Ingestion batch id (generated when empty)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <blob-id>",
		Short: "Delete a blob together with all its events and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/blobs/%s", serverURL, args[0])
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete, url, nil)
			if err != nil {
				return err
			}
			return doJSON(req, cmd.OutOrStdout())
		},
	}
}

func getJSON(ctx context.Context, url string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return doJSON(req, out)
}

func uploadFile(ctx context.Context, url, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return doJSON(req, out)
}

func doJSON(req *http.Request, out io.Writer) error {
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}
	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Fprintln(out, string(body))
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
