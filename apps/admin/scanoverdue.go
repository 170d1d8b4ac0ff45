package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) scanOverdue(asOfStr string) error {
	asOf := time.Now().UTC()
	if asOfStr != "" {
		var err error
		if asOf, err = time.Parse("2006-01-02", asOfStr); err != nil {
			return fmt.Errorf("invalid -asof date %q: expected YYYY-MM-DD", asOfStr)
		}
	}

	res, err := cli.billingSvc.EvaluateOverdue(context.Background(), asOf)
	if err != nil {
		return err
	}
	fmt.Printf("%d due(s) marked overdue as of %s\n", res.Marked, asOf.Format("2006-01-02"))
	return nil
}
