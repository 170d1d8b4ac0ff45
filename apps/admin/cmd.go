package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrRepo    user.Repository
	billingSvc billing.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addoperator -username USERNAME -email EMAIL [-tier TIER] - update or create a back-office operator; the password is prompted next")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset an operator's password")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  gendues -period YYYY-MM [-scope SCOPE] [-dueday DAY] - generate the monthly dues")
	fmt.Println("  scanoverdue [-asof YYYY-MM-DD] - mark unpaid dues past their due date as overdue")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addOperatorCmd := flag.NewFlagSet("addoperator", flag.ExitOnError)
	addOperatorUname := addOperatorCmd.String("username", "", "The operator's username.")
	addOperatorEmail := addOperatorCmd.String("email", "", "The operator's email.")
	addOperatorTier := addOperatorCmd.String("tier", user.TierFrontDesk, "The operator's access tier (admin, finance or frontdesk).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The operator's username or email. The password will be prompted next.")

	genDuesCmd := flag.NewFlagSet("gendues", flag.ExitOnError)
	genDuesPeriod := genDuesCmd.String("period", "", "The billing period, as YYYY-MM.")
	genDuesScope := genDuesCmd.String("scope", billing.ScopeAll, "The roster scope (all, active_only or primary_only).")
	genDuesDueDay := genDuesCmd.Int("dueday", 0, "Override the policy due day for this run.")

	scanOverdueCmd := flag.NewFlagSet("scanoverdue", flag.ExitOnError)
	scanOverdueAsOf := scanOverdueCmd.String("asof", "", "The evaluation date, as YYYY-MM-DD. Defaults to today.")

	switch args[1] {
	case "addoperator":
		if err := addOperatorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addOperatorUname == "" || *addOperatorEmail == "" {
			addOperatorCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addOperatorCmd.Usage()
			return errHelp
		}
		return cli.addOperator(*addOperatorUname, *addOperatorEmail, string(pwd), *addOperatorTier)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, string(pwd))
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "gendues":
		if err := genDuesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *genDuesPeriod == "" {
			genDuesCmd.Usage()
			return errHelp
		}
		return cli.generateDues(*genDuesPeriod, *genDuesScope, *genDuesDueDay)
	case "scanoverdue":
		if err := scanOverdueCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.scanOverdue(*scanOverdueAsOf)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() ([]byte, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	return pwd, err
}
