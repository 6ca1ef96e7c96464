package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	runID := fs.String("run", "", "promotion run id filter (promotions, audits)")
	onlyAborted := fs.Bool("aborted", false, "only aborted promotion runs")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,seed,height,chunks,blocks,conversions,promotions FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fatal("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick        int64  `json:"tick"`
				Path        string `json:"path"`
				Seed        int64  `json:"seed"`
				Height      int    `json:"height"`
				Chunks      int    `json:"chunks"`
				Blocks      int    `json:"blocks"`
				Conversions int64  `json:"conversions"`
				Promotions  int64  `json:"promotions"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Height, &r.Chunks, &r.Blocks, &r.Conversions, &r.Promotions); err != nil {
				fatal("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fatal("rows", err)
		}

	case "promotions":
		query := `SELECT raw_json FROM promotions WHERE (?='' OR run_id=?) AND (?=0 OR aborted=1) ORDER BY tick DESC LIMIT ?`
		rows, err := db.Query(query, *runID, *runID, boolInt(*onlyAborted), *limit)
		if err != nil {
			fatal("query", err)
		}
		defer rows.Close()
		printRawRows(rows)

	case "audits":
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "audits: missing -run")
			os.Exit(2)
		}
		rows, err := db.Query(`SELECT raw_json FROM audits WHERE run_id=? ORDER BY tick, seq LIMIT ?`, *runID, *limit)
		if err != nil {
			fatal("query", err)
		}
		defer rows.Close()
		printRawRows(rows)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(snapshots|promotions|audits)")
		os.Exit(2)
	}
}

func printRawRows(rows *sql.Rows) {
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			fatal("scan", err)
		}
		fmt.Println(raw)
	}
	if err := rows.Err(); err != nil {
		fatal("rows", err)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fatal(what string, err error) {
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}
