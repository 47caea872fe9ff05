package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		apiFlag          string
		modelFlag        string
		promptFlag       string
		imageFlag        string
		sourcePromptFlag string
		targetPromptFlag string
		outFlag          string
		intervalFlag     time.Duration
		timeoutFlag      time.Duration
	)
	flag.StringVar(&apiFlag, "api", envOr("PREDICT_API_URL", "http://localhost:8080"), "base URL of the prediction API")
	flag.StringVar(&modelFlag, "model", "enhance", "model id (enhance, openjourney, deepfloyd, masactrl, kling)")
	flag.StringVar(&promptFlag, "prompt", "", "prompt; model default when empty")
	flag.StringVar(&imageFlag, "image", "", "path to the input image (required)")
	flag.StringVar(&sourcePromptFlag, "source-prompt", "", "source prompt for prompt-pair models")
	flag.StringVar(&targetPromptFlag, "target-prompt", "", "target prompt for prompt-pair models")
	flag.StringVar(&outFlag, "out", "", "directory to save outputs into")
	flag.DurationVar(&intervalFlag, "interval", 250*time.Millisecond, "status polling interval")
	flag.DurationVar(&timeoutFlag, "timeout", 0, "give up tracking after this long (0 waits indefinitely)")
	flag.Parse()

	if strings.TrimSpace(imageFlag) == "" {
		exitWithError(fmt.Errorf("-image is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}

	err := run(ctx, runOptions{
		APIURL:       apiFlag,
		Model:        modelFlag,
		Prompt:       promptFlag,
		ImagePath:    imageFlag,
		SourcePrompt: sourcePromptFlag,
		TargetPrompt: targetPromptFlag,
		OutDir:       outFlag,
		Interval:     intervalFlag,
	}, os.Stdout)
	if err != nil {
		exitWithError(err)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "predict: %v\n", err)
	os.Exit(1)
}
