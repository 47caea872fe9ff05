package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/nhoon2002/Next-Replicate/internal/apiclient"
	"github.com/nhoon2002/Next-Replicate/internal/storage"
	"github.com/nhoon2002/Next-Replicate/internal/tracker"
	"github.com/nhoon2002/Next-Replicate/pkg/zip"
)

type runOptions struct {
	APIURL       string
	Model        string
	Prompt       string
	ImagePath    string
	SourcePrompt string
	TargetPrompt string
	OutDir       string
	Interval     time.Duration
	HTTPClient   *http.Client
}

func run(ctx context.Context, opts runOptions, out io.Writer) error {
	image, err := encodeImage(opts.ImagePath)
	if err != nil {
		return err
	}
	client, err := apiclient.NewClient(apiclient.Options{BaseURL: opts.APIURL, HTTPClient: opts.HTTPClient})
	if err != nil {
		return err
	}

	req := apiclient.SubmitRequest{
		Model:        opts.Model,
		Prompt:       opts.Prompt,
		Image:        image,
		SourcePrompt: opts.SourcePrompt,
		TargetPrompt: opts.TargetPrompt,
	}
	prediction, err := client.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(out, "submitted %s\n", prediction.ID)

	ctrl := tracker.New(tracker.Options{Fetcher: client, Interval: opts.Interval})
	res, err := ctrl.Track(ctx, prediction, func(u tracker.Update) {
		if u.Err != nil {
			fmt.Fprintf(out, "%s: status query failed: %s\n", prediction.ID, u.Err.Error())
			return
		}
		fmt.Fprintf(out, "%s: %s\n", u.Prediction.ID, u.Prediction.Status)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("stopped tracking %s; the job keeps running remotely", prediction.ID)
		}
		return err
	}

	if res.State == tracker.StateFailed {
		msg := res.Prediction.ErrorMessage()
		if msg == "" {
			msg = "prediction failed"
		}
		return errors.New(msg)
	}

	urls := res.Prediction.OutputURLs()
	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	if opts.OutDir == "" || len(urls) == 0 {
		return nil
	}
	return saveOutputs(ctx, client, opts.OutDir, res.Prediction.ID, urls, out)
}

// encodeImage reads a local file as a data URI.
func encodeImage(p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("read image: %s is empty", p)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func saveOutputs(ctx context.Context, client *apiclient.Client, dir, id string, urls []string, out io.Writer) error {
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return err
	}

	entries := make([]zip.Entry, 0, len(urls))
	for i, u := range urls {
		body, err := client.Download(ctx, u)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("output-%d%s", i, outputExt(u))
		key, n, err := store.Save(ctx, path.Join(id, name), body)
		body.Close()
		if err != nil {
			return err
		}
		fullPath, err := store.Path(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s (%d bytes)\n", fullPath, n)
		entries = append(entries, zip.Entry{Name: name, Path: fullPath})
	}
	if len(entries) < 2 {
		return nil
	}

	bundlePath, err := store.Path(path.Join(id, "outputs.zip"))
	if err != nil {
		return err
	}
	f, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	if err := zip.Bundle(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	fmt.Fprintf(out, "bundled %d outputs into %s\n", len(entries), bundlePath)
	return nil
}

func outputExt(rawURL string) string {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if ext := path.Ext(clean); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}

var _ tracker.Fetcher = (*apiclient.Client)(nil)
