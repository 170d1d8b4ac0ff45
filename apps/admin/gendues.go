package main

import (
	"context"
	"fmt"

	"github.com/clubemanager/backend/core/billing"
)

func (cli *commandLine) generateDues(period, scope string, dueDay int) error {
	p, err := billing.ParsePeriod(period)
	if err != nil {
		return err
	}
	if !scopeKnown(scope) {
		return fmt.Errorf("unknown scope %q", scope)
	}

	res, err := cli.billingSvc.Generate(context.Background(), billing.GenerateInput{
		Period: p,
		Scope:  scope,
		DueDay: dueDay,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d due(s) created, %d skipped\n", res.Period, res.Created, res.Skipped)
	return nil
}

func scopeKnown(scope string) bool {
	for _, s := range billing.AllScopes {
		if s == scope {
			return true
		}
	}
	return false
}
