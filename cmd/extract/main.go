// Command extract reads OCR text of a trading screenshot and prints the
// fields it can recognize.
//
//	extract -text "LONG Entry Price 64,000 Mark 65,100 ROE +12.5%"
//	tesseract shot.png - | extract
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"tradecoach/internal/logger"
	"tradecoach/internal/tradeocr"
)

func main() {
	var text string
	var debug bool
	flag.StringVar(&text, "text", "", "OCR text; read from stdin when empty")
	flag.BoolVar(&debug, "debug", false, "log unparsable values")
	flag.Parse()

	if text == "" {
		b, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "text cannot be empty")
		os.Exit(2)
	}

	level := "warn"
	if debug {
		level = "debug"
	}
	log, err := logger.New(level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	decimal.MarshalJSONWithoutQuotes = true
	fields := tradeocr.NewExtractor(log, nil).Extract(text)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(fields)
}
