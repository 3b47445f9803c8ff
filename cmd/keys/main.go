package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/config"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/store"
)

const usage = `usage: keys [-db path] <command> [flags]

commands:
  create  -name NAME             issue an API key (printed once)
  revoke  -name NAME             revoke an API client
  list                           list API clients
  prompt-save -name NAME -file F [-author A]
                                 store and validate a new prompt revision
  prompt-history -name NAME      list stored revisions of a prompt
`

func main() {
	config.LoadDotenv()
	dbPath := flag.String("db", envOr("TRADEMARK_DB_PATH", config.DefaultDBPath), "Path to SQLite database")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	if err := run(db, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		logrus.Fatal(err)
	}
}

func run(db *store.Database, command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	name := fs.String("name", "", "API client or prompt name")
	file := fs.String("file", "", "Prompt body file")
	author := fs.String("author", "", "Prompt author")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch command {
	case "create":
		if strings.TrimSpace(*name) == "" {
			return errors.New("create: -name is required")
		}
		key, client, err := db.CreateAPIClient(*name)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"client": client.Name, "prefix": client.KeyPrefix}).Info("api client created")
		fmt.Fprintln(out, key)
		return nil
	case "revoke":
		if err := db.RevokeAPIClient(*name); err != nil {
			return fmt.Errorf("revoke %s: %w", *name, err)
		}
		logrus.WithField("client", *name).Info("api client revoked")
		return nil
	case "list":
		clients, err := db.ListAPIClients()
		if err != nil {
			return err
		}
		rows := make([]clientRow, 0, len(clients))
		for _, c := range clients {
			rows = append(rows, clientRow{Name: c.Name, KeyPrefix: c.KeyPrefix, Revoked: c.Revoked, LastUsedAt: c.LastUsedAt, CreatedAt: c.CreatedAt})
		}
		return writeJSON(out, rows)
	case "prompt-save":
		return savePrompt(db, *name, *file, *author, out)
	case "prompt-history":
		history, err := db.PromptHistory(*name)
		if err != nil {
			return err
		}
		rows := make([]promptRow, 0, len(history))
		for _, p := range history {
			rows = append(rows, promptRow{Name: p.Name, Version: p.Version, Author: p.Author, CreatedAt: p.CreatedAt})
		}
		return writeJSON(out, rows)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// savePrompt refuses bodies that reference placeholders the embedded prompt does not
// supply, so the server never fails to start on a stored revision.
func savePrompt(db *store.Database, name, file, author string, out io.Writer) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(file) == "" {
		return errors.New("prompt-save: -name and -file are required")
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read prompt body: %w", err)
	}
	candidate, err := prompts.Parse(name, 0, string(body))
	if err != nil {
		return err
	}
	registry, err := prompts.Defaults()
	if err != nil {
		return err
	}
	if err := registry.Compatible(candidate); err != nil {
		return err
	}
	row, err := db.SavePromptTemplate(name, string(body), author)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"prompt": row.Name, "version": row.Version}).Info("prompt revision stored")
	return writeJSON(out, promptRow{Name: row.Name, Version: row.Version, Author: row.Author, CreatedAt: row.CreatedAt})
}

type clientRow struct {
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type promptRow struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
