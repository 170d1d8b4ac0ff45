package main

import (
	"context"
	"fmt"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/user"
)

// addOperator updates or creates a back-office operator.
func (cli *commandLine) addOperator(uname, email, pwd, tier string) error {
	var usr user.User
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	tier = core.CleanString(tier, true /* lower */)

	if _, ok := user.TierRank(tier); !ok {
		return fmt.Errorf("unknown tier %q", tier)
	}

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	}
	usr.Tier = tier
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
