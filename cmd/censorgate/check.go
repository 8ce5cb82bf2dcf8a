package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/censorgate"
)

// runCheck moderates stdin lines and prints one JSON verdict per line.
// Each line is "text <content>" or "image <url-or-base64>"; a bare line is
// treated as text.
func runCheck(args []string) {
	cfg, logger := loadConfig(args, "check")
	defer logger.Sync()

	gw, err := censorgate.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build gateway: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		kind, content, found := strings.Cut(line, " ")
		if !found || (kind != "text" && kind != "image") {
			kind, content = "text", line
		}

		var result any
		if kind == "image" {
			result = gw.SubmitImage(ctx, content, "cli")
		} else {
			result = gw.SubmitText(ctx, content, "cli", nil)
		}
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("read stdin failed", zap.Error(err))
		os.Exit(1)
	}
}
