package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/example/regionkit/internal/store"
)

// storeCmd inspects the label database.
type storeCmd struct {
	*root
	fs *flag.FlagSet
}

func (s *storeCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseStoreCmd(args []string, r *root) (*storeCmd, error) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	s := &storeCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, &UsageError{of: s}
	}
	return s, nil
}

func (s *storeCmd) Run() error {
	args := s.fs.Args()
	db, err := store.Open(s.config.StorePath())
	if err != nil {
		return err
	}
	defer closeWithLog("store", db)
	ctx := context.Background()

	switch args[0] {
	case "list":
		records, err := db.List(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(s.stdout, "%s\t%s\t%s\n", rec.Target, rec.ID, rec.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	case "show":
		if len(args) < 2 {
			return &UsageError{of: s}
		}
		rec, err := db.Load(ctx, args[1])
		if err != nil {
			return err
		}
		return writeJSON(s.stdout, "", rec.Labels)
	case "delete":
		if len(args) < 2 {
			return &UsageError{of: s}
		}
		if err := db.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(s.stderr, "deleted %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("unknown store command: %s", args[0])
	}
}
