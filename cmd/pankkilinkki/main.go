// Command pankkilinkki decodes bank files and delivers their contents to the
// membership registry.
//
// Usage:
//
//	pankkilinkki process inbox/20240115.TL   # process stored files
//	pankkilinkki ledger 20240115.TL --xlsx out.xlsx
//	pankkilinkki stream 20240115.RI          # print decoded XML documents
//	pankkilinkki serve --config config.yaml
//
// Without --config, configuration is read from the environment (STAGE,
// ENDPOINT, API_KEY or API_KEY_B64, SLACK_WEBHOOK_LOGS, SLACK_WEBHOOK_INFO).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
